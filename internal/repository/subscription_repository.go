package repository

import (
	"context"
	"educonnect_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// SubscriptionRepository 学生订阅（权益）只读查询
type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) activeScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", model.SubscriptionActive).
			Where("expires_at IS NULL OR expires_at > ?", now)
	}
}

func (r *SubscriptionRepository) HasActive(ctx context.Context, studentID, classID uint, now time.Time) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.StudentSubscription{}).
		Scopes(r.activeScope(now)).
		Where("student_id = ? AND class_id = ?", studentID, classID).
		Count(&count).Error
	return count > 0, err
}

func (r *SubscriptionRepository) ActiveClassIDs(ctx context.Context, studentID uint, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.StudentSubscription{}).
		Scopes(r.activeScope(now)).
		Where("student_id = ?", studentID).
		Distinct().
		Pluck("class_id", &ids).Error
	return ids, err
}
