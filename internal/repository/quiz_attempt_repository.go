package repository

import (
	"context"
	"educonnect_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// Create 违反 (quiz_id, student_id) 唯一索引时返回 gorm.ErrDuplicatedKey
func (r *QuizAttemptRepository) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *QuizAttemptRepository) Exists(ctx context.Context, quizID string, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *QuizAttemptRepository) FindByQuizAndStudent(ctx context.Context, quizID string, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		First(&attempt).Error
	return &attempt, err
}

func (r *QuizAttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("marks desc, attempted_at asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *QuizAttemptRepository) AttemptedQuizIDs(ctx context.Context, studentID uint) (map[string]bool, error) {
	var ids []string
	if err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("student_id = ?", studentID).
		Pluck("quiz_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

type QuizAttemptCount struct {
	QuizID   string
	Attempts int64
}

func (r *QuizAttemptRepository) CountByQuizIDs(ctx context.Context, quizIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}

	var rows []QuizAttemptCount
	if err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Select("quiz_id, COUNT(*) AS attempts").
		Where("quiz_id IN ?", quizIDs).
		Group("quiz_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.QuizID] = row.Attempts
	}
	return out, nil
}

// AttemptRow 作答记录与测验、班级、学生信息的联表结果
type AttemptRow struct {
	ID          string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	StudentID   uint      `json:"studentId"`
	StudentName string    `json:"studentName"`
	LessonName  string    `json:"lessonName"`
	ClassID     uint      `json:"classId"`
	ClassName   string    `json:"className"`
	Subject     string    `json:"subject"`
	Marks       int       `json:"marks"`
	TotalMarks  int       `json:"totalMarks"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

func (r *QuizAttemptRepository) joinedRows(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Table("quiz_attempts a").
		Select("a.id, a.quiz_id, a.student_id, u.name AS student_name, q.lesson_name, q.class_id, " +
			"c.name AS class_name, c.subject, a.marks, a.total_marks, a.attempted_at").
		Joins("JOIN quizzes q ON q.id = a.quiz_id").
		Joins("LEFT JOIN classes c ON c.id = q.class_id").
		Joins("LEFT JOIN users u ON u.id = a.student_id")
}

func (r *QuizAttemptRepository) RowsByStudent(ctx context.Context, studentID uint) ([]AttemptRow, error) {
	var rows []AttemptRow
	err := r.joinedRows(ctx).
		Where("a.student_id = ?", studentID).
		Order("a.attempted_at desc").
		Scan(&rows).Error
	return rows, err
}

func (r *QuizAttemptRepository) RowsByQuizIDs(ctx context.Context, quizIDs []string) ([]AttemptRow, error) {
	var rows []AttemptRow
	if len(quizIDs) == 0 {
		return rows, nil
	}
	err := r.joinedRows(ctx).
		Where("a.quiz_id IN ?", quizIDs).
		Scan(&rows).Error
	return rows, err
}

// RowsByClassIDs 指定班级下所有学生的作答记录，用于排行榜
func (r *QuizAttemptRepository) RowsByClassIDs(ctx context.Context, classIDs []uint) ([]AttemptRow, error) {
	var rows []AttemptRow
	if len(classIDs) == 0 {
		return rows, nil
	}
	err := r.joinedRows(ctx).
		Where("q.class_id IN ?", classIDs).
		Scan(&rows).Error
	return rows, err
}

type AttemptFingerprint struct {
	Count    int64
	LatestID string
}

// Fingerprint 学生作答数量与最近一次作答 ID，作为学习路径缓存键的一部分
func (r *QuizAttemptRepository) Fingerprint(ctx context.Context, studentID uint) (AttemptFingerprint, error) {
	var fp AttemptFingerprint
	db := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).Where("student_id = ?", studentID)
	if err := db.Count(&fp.Count).Error; err != nil {
		return fp, err
	}
	if fp.Count == 0 {
		return fp, nil
	}

	var latest model.QuizAttempt
	err := r.DB.WithContext(ctx).Select("id").
		Where("student_id = ?", studentID).
		Order("attempted_at desc, id desc").
		First(&latest).Error
	fp.LatestID = latest.ID
	return fp, err
}
