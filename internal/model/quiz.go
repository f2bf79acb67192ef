package model

import (
	"time"

	"gorm.io/datatypes"
)

const IncorrectAnswersPerQuestion = 3

// QuizQuestion 内嵌在 Quiz 中，不单独建表
type QuizQuestion struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// Complete 恰好 1 个正确答案和 3 个错误答案
func (q *QuizQuestion) Complete() bool {
	return q.Question != "" && q.CorrectAnswer != "" && len(q.IncorrectAnswers) == IncorrectAnswersPerQuestion
}

// Options 学生端展示的四个选项。正确答案按题目 ID 决定插入位置，错误答案保持原顺序
func (q *QuizQuestion) Options() []string {
	pos := 0
	for _, r := range q.ID {
		pos += int(r)
	}
	pos %= len(q.IncorrectAnswers) + 1

	opts := make([]string, 0, len(q.IncorrectAnswers)+1)
	opts = append(opts, q.IncorrectAnswers[:pos]...)
	opts = append(opts, q.CorrectAnswer)
	opts = append(opts, q.IncorrectAnswers[pos:]...)
	return opts
}

type Quiz struct {
	UUIDBase
	LessonName string                            `gorm:"size:200;not null;index" json:"lessonName"`
	ClassID    uint                              `gorm:"index;not null" json:"classId"`
	TeacherID  uint                              `gorm:"index;not null" json:"teacherId"`
	Timer      int                               `gorm:"not null" json:"timer"`
	Questions  datatypes.JSONSlice[QuizQuestion] `gorm:"not null" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionIndex 按题目 ID 建立索引
func (q *Quiz) QuestionIndex() map[string]*QuizQuestion {
	idx := make(map[string]*QuizQuestion, len(q.Questions))
	for i := range q.Questions {
		idx[q.Questions[i].ID] = &q.Questions[i]
	}
	return idx
}

func (q *Quiz) TotalMarks() int {
	return len(q.Questions)
}

const NotAnswered = "Not Answered"

type QuizAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}

// QuizAttempt 每个学生每份测验只能有一条，(quiz_id, student_id) 唯一
type QuizAttempt struct {
	UUIDBase
	QuizID      string                          `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempt_quiz_student" json:"quizId"`
	StudentID   uint                            `gorm:"not null;uniqueIndex:idx_attempt_quiz_student;index" json:"studentId"`
	Answers     datatypes.JSONSlice[QuizAnswer] `gorm:"not null" json:"answers"`
	Marks       int                             `gorm:"not null;default:0" json:"marks"`
	TotalMarks  int                             `gorm:"not null;default:0" json:"totalMarks"`
	StartTime   *time.Time                      `json:"startTime,omitempty"`
	AttemptedAt time.Time                       `gorm:"not null;index" json:"attemptedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Percentage 以测验题目总数为分母，未作答的题目同样计入
func Percentage(marks, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(marks) / float64(total) * 100
	return float64(int(p*100+0.5)) / 100
}
