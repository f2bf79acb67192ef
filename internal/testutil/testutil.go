// Package testutil 测试共用的 SQLite 数据库、数据构造和假的文本生成服务
package testutil

import (
	"context"
	"educonnect_backend/internal/model"
	"educonnect_backend/pkg/database"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 每个测试一份独立的 SQLite 文件，与生产环境一样开启错误翻译
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "educonnect.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, name string, role model.UserRole) *model.User {
	t.Helper()

	user := &model.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password: "x",
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func CreateClass(t *testing.T, db *gorm.DB, teacherID uint, name, subject string) *model.Class {
	t.Helper()

	class := &model.Class{Name: name, Subject: subject, TeacherID: teacherID}
	if err := db.Create(class).Error; err != nil {
		t.Fatalf("create class %s: %v", name, err)
	}
	return class
}

// Subscribe 写入一条订阅，expiresAt 为 nil 表示长期有效
func Subscribe(t *testing.T, db *gorm.DB, studentID, classID uint, status model.SubscriptionStatus, expiresAt *time.Time) {
	t.Helper()

	sub := &model.StudentSubscription{
		StudentID: studentID,
		ClassID:   classID,
		Status:    status,
		ExpiresAt: expiresAt,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
}

// CreateQuiz 直接写入一份 n 道题的测验，第 i 题的正确答案为 "correct-i"
func CreateQuiz(t *testing.T, db *gorm.DB, teacherID, classID uint, lesson string, n int) *model.Quiz {
	t.Helper()

	questions := make([]model.QuizQuestion, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, model.QuizQuestion{
			ID:               model.GenerateUUID(),
			Question:         fmt.Sprintf("%s question %d", lesson, i),
			CorrectAnswer:    fmt.Sprintf("correct-%d", i),
			IncorrectAnswers: []string{fmt.Sprintf("wrong-%d-a", i), fmt.Sprintf("wrong-%d-b", i), fmt.Sprintf("wrong-%d-c", i)},
		})
	}

	quiz := &model.Quiz{
		LessonName: lesson,
		ClassID:    classID,
		TeacherID:  teacherID,
		Timer:      15,
		Questions:  questions,
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("create quiz %s: %v", lesson, err)
	}
	return quiz
}

// CreateAttempt 直接写入一条作答记录，跳过判分
func CreateAttempt(t *testing.T, db *gorm.DB, quiz *model.Quiz, studentID uint, marks int, at time.Time) *model.QuizAttempt {
	t.Helper()

	answers := make([]model.QuizAnswer, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		a := model.QuizAnswer{QuestionID: q.ID, SelectedAnswer: q.IncorrectAnswers[0]}
		if i < marks {
			a = model.QuizAnswer{QuestionID: q.ID, SelectedAnswer: q.CorrectAnswer, IsCorrect: true}
		}
		answers = append(answers, a)
	}

	attempt := &model.QuizAttempt{
		QuizID:      quiz.ID,
		StudentID:   studentID,
		Answers:     answers,
		Marks:       marks,
		TotalMarks:  quiz.TotalMarks(),
		AttemptedAt: at,
	}
	if err := db.Create(attempt).Error; err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	return attempt
}

// QuizText 按出题模板拼出 n 道格式正确的题目
func QuizText(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Question %d: What is item %d?\n", i, i)
		fmt.Fprintf(&b, "A) right %d\n", i)
		fmt.Fprintf(&b, "B) wrong %d one\n", i)
		fmt.Fprintf(&b, "C) wrong %d two\n", i)
		fmt.Fprintf(&b, "D) wrong %d three\n\n", i)
	}
	return b.String()
}

// FakeGenerator 按预设返回固定文本，并记录调用次数和最后一次提示词
type FakeGenerator struct {
	mu           sync.Mutex
	Response     string
	Err          error
	Unconfigured bool
	calls        int
	lastPrompt   string
}

func (f *FakeGenerator) Configured() bool {
	return !f.Unconfigured
}

func (f *FakeGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeGenerator) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}
