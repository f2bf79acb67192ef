package service

import (
	"context"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/testutil"
	"educonnect_backend/internal/util"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestGenerateQuizSavesExactCount(t *testing.T) {
	f := newFixture(t)
	f.gen.Response = testutil.QuizText(3)

	quiz, err := f.quiz.GenerateQuiz(context.Background(), f.teacher.ID, GenerateQuizReq{
		LessonName:        "  Fractions  ",
		ClassID:           f.class.ID,
		NumberOfQuestions: 3,
		Timer:             10,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	if quiz.LessonName != "Fractions" {
		t.Errorf("lesson name = %q, want trimmed", quiz.LessonName)
	}
	if len(quiz.Questions) != 3 || quiz.TeacherID != f.teacher.ID || quiz.Timer != 10 {
		t.Errorf("unexpected quiz %+v", quiz)
	}
	if !strings.Contains(f.gen.LastPrompt(), "exactly 3") {
		t.Errorf("prompt did not request 3 questions: %q", f.gen.LastPrompt())
	}

	stored, err := f.quiz.Quizzes.FindByID(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("stored quiz: %v", err)
	}
	if len(stored.Questions) != 3 || stored.Questions[2].CorrectAnswer != "right 3" {
		t.Errorf("stored questions = %+v", stored.Questions)
	}

	transcript := filepath.Join(f.storeDir, util.GenerationArchivePrefix, strconv.Itoa(int(f.teacher.ID)), quiz.ID+".txt")
	data, err := os.ReadFile(transcript)
	if err != nil {
		t.Fatalf("transcript not archived: %v", err)
	}
	if string(data) != f.gen.Response {
		t.Error("archived transcript differs from generator output")
	}
}

func TestGenerateQuizCountMismatchPersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.gen.Response = testutil.QuizText(4)

	_, err := f.quiz.GenerateQuiz(context.Background(), f.teacher.ID, GenerateQuizReq{
		LessonName:        "Fractions",
		ClassID:           f.class.ID,
		NumberOfQuestions: 5,
		Timer:             10,
	})
	if !errors.Is(err, util.ErrGenerationMismatch) {
		t.Fatalf("err = %v, want generation mismatch", err)
	}
	if n := f.countQuizzes(t); n != 0 {
		t.Fatalf("%d quizzes stored after mismatch", n)
	}
}

func TestGenerateQuizRejections(t *testing.T) {
	f := newFixture(t)
	f.gen.Response = testutil.QuizText(2)
	otherClass := testutil.CreateClass(t, f.db, f.other.ID, "Other class", "Science")

	tests := []struct {
		name string
		req  GenerateQuizReq
		want error
	}{
		{"blank lesson", GenerateQuizReq{LessonName: "   ", ClassID: f.class.ID, NumberOfQuestions: 2, Timer: 5}, util.ErrValidation},
		{"zero questions", GenerateQuizReq{LessonName: "L", ClassID: f.class.ID, NumberOfQuestions: 0, Timer: 5}, util.ErrValidation},
		{"negative timer", GenerateQuizReq{LessonName: "L", ClassID: f.class.ID, NumberOfQuestions: 2, Timer: -1}, util.ErrValidation},
		{"too many questions", GenerateQuizReq{LessonName: "L", ClassID: f.class.ID, NumberOfQuestions: 31, Timer: 5}, util.ErrValidation},
		{"unknown class", GenerateQuizReq{LessonName: "L", ClassID: 9999, NumberOfQuestions: 2, Timer: 5}, util.ErrClassNotFound},
		{"not class owner", GenerateQuizReq{LessonName: "L", ClassID: otherClass.ID, NumberOfQuestions: 2, Timer: 5}, util.ErrNotClassOwner},
	}

	for _, tt := range tests {
		_, err := f.quiz.GenerateQuiz(context.Background(), f.teacher.ID, tt.req)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if f.gen.Calls() != 0 {
		t.Fatalf("generator called %d times for rejected requests", f.gen.Calls())
	}
	if n := f.countQuizzes(t); n != 0 {
		t.Fatalf("%d quizzes stored", n)
	}
}

func TestGenerateQuizGeneratorUnavailable(t *testing.T) {
	f := newFixture(t)
	req := GenerateQuizReq{LessonName: "L", ClassID: f.class.ID, NumberOfQuestions: 2, Timer: 5}

	f.gen.Unconfigured = true
	if _, err := f.quiz.GenerateQuiz(context.Background(), f.teacher.ID, req); !errors.Is(err, util.ErrAIKeyMissing) {
		t.Fatalf("err = %v, want missing key", err)
	}

	f.gen.Unconfigured = false
	f.gen.Err = errors.New("connection refused")
	_, err := f.quiz.GenerateQuiz(context.Background(), f.teacher.ID, req)
	if !errors.Is(err, util.ErrExternalService) {
		t.Fatalf("err = %v, want external service", err)
	}
	if appErr := util.AsAppError(err); appErr == nil || strings.Contains(appErr.Message, "refused") {
		t.Errorf("transport detail leaked into message: %v", appErr)
	}
}

func TestGetQuizViews(t *testing.T) {
	f := newFixture(t)
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 2)
	ctx := context.Background()

	got, err := f.quiz.GetQuiz(ctx, Caller{UserID: f.teacher.ID, Role: model.Teacher}, quiz.ID)
	if err != nil {
		t.Fatalf("teacher view: %v", err)
	}
	if full, ok := got.(*model.Quiz); !ok || full.Questions[0].CorrectAnswer == "" {
		t.Fatalf("teacher should get full quiz, got %T", got)
	}

	got, err = f.quiz.GetQuiz(ctx, Caller{UserID: f.student.ID, Role: model.Student}, quiz.ID)
	if err != nil {
		t.Fatalf("student view: %v", err)
	}
	view, ok := got.(*StudentQuizView)
	if !ok {
		t.Fatalf("student should get StudentQuizView, got %T", got)
	}
	if len(view.Questions) != 2 || len(view.Questions[0].Options) != 4 || view.Attempted {
		t.Fatalf("unexpected student view %+v", view)
	}

	if _, err := f.quiz.GetQuiz(ctx, Caller{UserID: f.other.ID, Role: model.Teacher}, quiz.ID); !errors.Is(err, util.ErrNotQuizOwner) {
		t.Errorf("other teacher: err = %v", err)
	}

	outsider := testutil.CreateUser(t, f.db, "Uma Unsubscribed", model.Student)
	if _, err := f.quiz.GetQuiz(ctx, Caller{UserID: outsider.ID, Role: model.Student}, quiz.ID); !errors.Is(err, util.ErrNotSubscribed) {
		t.Errorf("unsubscribed student: err = %v", err)
	}

	if _, err := f.quiz.GetQuiz(ctx, Caller{UserID: f.teacher.ID, Role: model.Teacher}, "not-a-uuid"); !errors.Is(err, util.ErrQuizNotFound) {
		t.Errorf("bad id: err = %v", err)
	}
}

func TestUpdateTimerAndDelete(t *testing.T) {
	f := newFixture(t)
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 2)
	ctx := context.Background()

	if _, err := f.quiz.UpdateTimer(ctx, f.other.ID, quiz.ID, UpdateTimerReq{Timer: 30}); !errors.Is(err, util.ErrNotQuizOwner) {
		t.Fatalf("other teacher update: err = %v", err)
	}
	if _, err := f.quiz.UpdateTimer(ctx, f.teacher.ID, quiz.ID, UpdateTimerReq{Timer: 0}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("zero timer: err = %v", err)
	}
	updated, err := f.quiz.UpdateTimer(ctx, f.teacher.ID, quiz.ID, UpdateTimerReq{Timer: 30})
	if err != nil || updated.Timer != 30 {
		t.Fatalf("update timer: %v, %+v", err, updated)
	}

	testutil.CreateAttempt(t, f.db, quiz, f.student.ID, 1, quiz.CreatedAt)

	if err := f.quiz.DeleteQuiz(ctx, f.other.ID, quiz.ID); !errors.Is(err, util.ErrNotQuizOwner) {
		t.Fatalf("other teacher delete: err = %v", err)
	}
	if err := f.quiz.DeleteQuiz(ctx, f.teacher.ID, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var attempts int64
	f.db.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quiz.ID).Count(&attempts)
	if attempts != 0 {
		t.Fatalf("%d attempts left after cascade delete", attempts)
	}
	if err := f.quiz.DeleteQuiz(ctx, f.teacher.ID, quiz.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
	if _, err := f.attempt.GetResult(ctx, f.student.ID, quiz.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("result after delete: err = %v", err)
	}
}

func TestTeacherAndStudentListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 2)
	otherClass := testutil.CreateClass(t, f.db, f.other.ID, "Other class", "Science")
	testutil.CreateQuiz(t, f.db, f.other.ID, otherClass.ID, "Physics", 2)
	testutil.CreateAttempt(t, f.db, quiz, f.student.ID, 2, quiz.CreatedAt)

	summaries, err := f.quiz.ListTeacherQuizzes(ctx, f.teacher.ID)
	if err != nil {
		t.Fatalf("ListTeacherQuizzes: %v", err)
	}
	if len(summaries) != 1 || summaries[0].AttemptCount != 1 || summaries[0].ClassName != "Grade 8 Maths" {
		t.Fatalf("summaries = %+v", summaries)
	}

	classes, err := f.quiz.ListTeacherClasses(ctx, f.teacher.ID)
	if err != nil || len(classes) != 1 {
		t.Fatalf("classes = %+v, err = %v", classes, err)
	}

	available, err := f.quiz.ListAvailableQuizzes(ctx, f.student.ID)
	if err != nil {
		t.Fatalf("ListAvailableQuizzes: %v", err)
	}
	if len(available) != 1 || available[0].ID != quiz.ID || !available[0].Attempted {
		t.Fatalf("available = %+v", available)
	}
}
