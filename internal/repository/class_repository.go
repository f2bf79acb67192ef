package repository

import (
	"context"
	"educonnect_backend/internal/model"

	"gorm.io/gorm"
)

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) FindByID(ctx context.Context, id uint) (*model.Class, error) {
	var class model.Class
	err := r.DB.WithContext(ctx).First(&class, id).Error
	return &class, err
}

func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]model.Class, error) {
	var classes []model.Class
	err := r.DB.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("name asc").
		Find(&classes).Error
	return classes, err
}

func (r *ClassRepository) IDsByTeacher(ctx context.Context, teacherID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Class{}).
		Where("teacher_id = ?", teacherID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ClassRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Class, error) {
	out := make(map[uint]model.Class, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var classes []model.Class
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&classes).Error; err != nil {
		return nil, err
	}
	for _, c := range classes {
		out[c.ID] = c
	}
	return out, nil
}
