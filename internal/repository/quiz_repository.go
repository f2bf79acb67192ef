package repository

import (
	"context"
	"educonnect_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error
	return &quiz, err
}

func (r *QuizRepository) UpdateTimer(ctx context.Context, id string, timer int) error {
	return r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", id).
		Update("timer", timer).Error
}

// DeleteWithAttempts 在同一事务内删除测验及其全部作答记录
func (r *QuizRepository) DeleteWithAttempts(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", id).Error
	})
}

func (r *QuizRepository) ListByClassIDs(ctx context.Context, classIDs []uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if len(classIDs) == 0 {
		return quizzes, nil
	}
	err := r.DB.WithContext(ctx).
		Where("class_id IN ?", classIDs).
		Order("created_at desc").
		Find(&quizzes).Error
	return quizzes, err
}

// ListForTeacher 教师直接创建的测验，以及其名下班级的测验
func (r *QuizRepository) ListForTeacher(ctx context.Context, teacherID uint, classIDs []uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	query := r.DB.WithContext(ctx).Where("teacher_id = ?", teacherID)
	if len(classIDs) > 0 {
		query = r.DB.WithContext(ctx).Where("teacher_id = ? OR class_id IN ?", teacherID, classIDs)
	}
	err := query.Order("created_at desc").Find(&quizzes).Error
	return quizzes, err
}
