package service

import (
	"context"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/testutil"
	"educonnect_backend/internal/util"
	"errors"
	"testing"
	"time"
)

func answersFor(quiz *model.Quiz, correct int) []SubmittedAnswer {
	out := make([]SubmittedAnswer, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		selected := q.IncorrectAnswers[0]
		if i < correct {
			selected = q.CorrectAnswer
		}
		out = append(out, SubmittedAnswer{QuestionID: q.ID, SelectedAnswer: selected})
	}
	return out
}

func TestGenerateThenAttemptScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.Response = testutil.QuizText(5)

	quiz, err := f.quiz.GenerateQuiz(ctx, f.teacher.ID, GenerateQuizReq{
		LessonName:        "Algebra Basics",
		ClassID:           f.class.ID,
		NumberOfQuestions: 5,
		Timer:             20,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(quiz.Questions) != 5 {
		t.Fatalf("got %d questions, want 5", len(quiz.Questions))
	}

	result, err := f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: quiz.ID, Answers: answersFor(quiz, 3)})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if result.Marks != 3 || result.TotalMarks != 5 || result.Percentage != 60 {
		t.Fatalf("result = %d/%d (%v%%), want 3/5 (60%%)", result.Marks, result.TotalMarks, result.Percentage)
	}

	_, err = f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: quiz.ID, Answers: answersFor(quiz, 5)})
	if !errors.Is(err, util.ErrAlreadyAttempted) {
		t.Fatalf("second submission err = %v, want duplicate", err)
	}
	if util.AsAppError(err).Status() != 400 {
		t.Fatalf("duplicate status = %d, want 400", util.AsAppError(err).Status())
	}

	var count int64
	f.db.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quiz.ID).Count(&count)
	if count != 1 {
		t.Fatalf("%d attempts stored, want 1", count)
	}
}

func TestGradeAnswersCountsUnansweredAgainstTotal(t *testing.T) {
	quiz := &model.Quiz{Questions: []model.QuizQuestion{
		{ID: "q1", CorrectAnswer: "a", IncorrectAnswers: []string{"b", "c", "d"}},
		{ID: "q2", CorrectAnswer: "a", IncorrectAnswers: []string{"b", "c", "d"}},
		{ID: "q3", CorrectAnswer: "a", IncorrectAnswers: []string{"b", "c", "d"}},
		{ID: "q4", CorrectAnswer: "Paris", IncorrectAnswers: []string{"b", "c", "d"}},
	}}

	answers, marks, err := GradeAnswers(quiz, []SubmittedAnswer{
		{QuestionID: "q3", SelectedAnswer: "b"},
		{QuestionID: "q1", SelectedAnswer: "a"},
		{QuestionID: "q2", SelectedAnswer: "  "},
		{QuestionID: "q4", SelectedAnswer: "paris"},
	})
	if err != nil {
		t.Fatalf("GradeAnswers: %v", err)
	}
	if marks != 1 {
		t.Fatalf("marks = %d, want 1 (comparison is case sensitive)", marks)
	}
	if len(answers) != 4 {
		t.Fatalf("got %d answers, want 4", len(answers))
	}

	// 按测验题目顺序输出
	for i, want := range []string{"q1", "q2", "q3", "q4"} {
		if answers[i].QuestionID != want {
			t.Fatalf("answers[%d] = %s, want %s", i, answers[i].QuestionID, want)
		}
	}
	if answers[1].SelectedAnswer != model.NotAnswered || answers[1].IsCorrect {
		t.Errorf("blank answer should be Not Answered: %+v", answers[1])
	}
	if model.Percentage(marks, quiz.TotalMarks()) != 25 {
		t.Errorf("percentage = %v, want 25", model.Percentage(marks, quiz.TotalMarks()))
	}
}

func TestGradeAnswersMissingQuestionsAreNotAnswered(t *testing.T) {
	quiz := &model.Quiz{Questions: []model.QuizQuestion{
		{ID: "q1", CorrectAnswer: "a"},
		{ID: "q2", CorrectAnswer: "a"},
	}}

	answers, marks, err := GradeAnswers(quiz, []SubmittedAnswer{{QuestionID: "q1", SelectedAnswer: "a"}})
	if err != nil {
		t.Fatalf("GradeAnswers: %v", err)
	}
	if marks != 1 || len(answers) != 2 || answers[1].SelectedAnswer != model.NotAnswered {
		t.Fatalf("marks = %d, answers = %+v", marks, answers)
	}
}

func TestGradeAnswersRejectsForeignAndRepeatedQuestions(t *testing.T) {
	quiz := &model.Quiz{Questions: []model.QuizQuestion{{ID: "q1", CorrectAnswer: "a"}}}

	if _, _, err := GradeAnswers(quiz, []SubmittedAnswer{{QuestionID: "nope", SelectedAnswer: "a"}}); !errors.Is(err, util.ErrValidation) {
		t.Errorf("unknown question: err = %v", err)
	}
	repeated := []SubmittedAnswer{{QuestionID: "q1", SelectedAnswer: "b"}, {QuestionID: "q1", SelectedAnswer: "a"}}
	if _, _, err := GradeAnswers(quiz, repeated); !errors.Is(err, util.ErrValidation) {
		t.Errorf("repeated question: err = %v", err)
	}
}

func TestSubmitAttemptRequiresEntitlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 2)

	expired := time.Now().Add(-time.Hour)
	lapsed := testutil.CreateUser(t, f.db, "Lara Lapsed", model.Student)
	testutil.Subscribe(t, f.db, lapsed.ID, f.class.ID, model.SubscriptionActive, &expired)
	inactive := testutil.CreateUser(t, f.db, "Ivan Inactive", model.Student)
	testutil.Subscribe(t, f.db, inactive.ID, f.class.ID, model.SubscriptionInactive, nil)

	for _, s := range []*model.User{lapsed, inactive} {
		_, err := f.attempt.SubmitAttempt(ctx, s.ID, SubmitAttemptReq{QuizID: quiz.ID, Answers: answersFor(quiz, 2)})
		if !errors.Is(err, util.ErrNotSubscribed) {
			t.Errorf("%s: err = %v, want not subscribed", s.Name, err)
		}
	}

	var count int64
	f.db.Model(&model.QuizAttempt{}).Count(&count)
	if count != 0 {
		t.Fatalf("%d attempts stored without entitlement", count)
	}
}

func TestSubmitAttemptValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 2)

	if _, err := f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: model.GenerateUUID(), Answers: answersFor(quiz, 1)}); !errors.Is(err, util.ErrQuizNotFound) {
		t.Errorf("unknown quiz: err = %v", err)
	}
	if _, err := f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: quiz.ID}); !errors.Is(err, util.ErrValidation) {
		t.Errorf("no answers: err = %v", err)
	}
	bad := []SubmittedAnswer{{QuestionID: "", SelectedAnswer: "x"}}
	if _, err := f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: quiz.ID, Answers: bad}); !errors.Is(err, util.ErrValidation) {
		t.Errorf("blank question id: err = %v", err)
	}
}

func TestGetResultAndTeacherAttemptList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := testutil.CreateQuiz(t, f.db, f.teacher.ID, f.class.ID, "Algebra", 3)

	if _, err := f.attempt.GetResult(ctx, f.student.ID, quiz.ID); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("result before attempt: err = %v", err)
	}

	start := time.Now().Add(-5 * time.Minute)
	if _, err := f.attempt.SubmitAttempt(ctx, f.student.ID, SubmitAttemptReq{QuizID: quiz.ID, Answers: answersFor(quiz, 2), StartTime: &start}); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	result, err := f.attempt.GetResult(ctx, f.student.ID, quiz.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.Marks != 2 || result.Percentage != 66.67 || result.StartTime == nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Answers[0].CorrectAnswer != quiz.Questions[0].CorrectAnswer {
		t.Errorf("result should reveal correct answers after submission")
	}

	list, err := f.attempt.ListQuizAttempts(ctx, f.teacher.ID, quiz.ID)
	if err != nil {
		t.Fatalf("ListQuizAttempts: %v", err)
	}
	if len(list) != 1 || list[0].StudentName != f.student.Name {
		t.Fatalf("attempt list = %+v", list)
	}
	if _, err := f.attempt.ListQuizAttempts(ctx, f.other.ID, quiz.ID); !errors.Is(err, util.ErrNotQuizOwner) {
		t.Errorf("other teacher: err = %v", err)
	}
}
