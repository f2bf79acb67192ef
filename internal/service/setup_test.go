package service

import (
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/repository"
	"educonnect_backend/internal/testutil"
	"testing"

	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	gen       *testutil.FakeGenerator
	storeDir  string
	quiz      *QuizService
	attempt   *QuizAttemptService
	analytics *QuizAnalyticsService

	teacher *model.User
	other   *model.User
	student *model.User
	class   *model.Class
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	gen := &testutil.FakeGenerator{}
	storeDir := t.TempDir()
	cfg := config.QuizConfig{
		MaxQuestions:                 30,
		WeakTopicThreshold:           60,
		ArchiveGenerationTranscripts: true,
	}

	quizzes := repository.NewQuizRepository(db)
	attempts := repository.NewQuizAttemptRepository(db)
	classes := repository.NewClassRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	users := repository.NewUserRepository(db)
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: storeDir}}}

	quizSvc := NewQuizService(quizzes, attempts, classes, subs, gen, storage, cfg)
	f := &fixture{
		db:        db,
		gen:       gen,
		storeDir:  storeDir,
		quiz:      quizSvc,
		attempt:   NewQuizAttemptService(quizSvc, attempts, subs, users),
		analytics: NewQuizAnalyticsService(quizSvc, attempts, subs, gen, nil, cfg),
	}

	f.teacher = testutil.CreateUser(t, db, "Tina Teacher", model.Teacher)
	f.other = testutil.CreateUser(t, db, "Oscar Other", model.Teacher)
	f.student = testutil.CreateUser(t, db, "Sam Student", model.Student)
	f.class = testutil.CreateClass(t, db, f.teacher.ID, "Grade 8 Maths", "Mathematics")
	testutil.Subscribe(t, db, f.student.ID, f.class.ID, model.SubscriptionActive, nil)
	return f
}

func (f *fixture) countQuizzes(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Quiz{}).Count(&n).Error; err != nil {
		t.Fatalf("count quizzes: %v", err)
	}
	return n
}
