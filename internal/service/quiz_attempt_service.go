package service

import (
	"context"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/repository"
	"educonnect_backend/internal/util"
	"educonnect_backend/pkg/logger"
	"educonnect_backend/pkg/monitoring"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizAttemptService struct {
	Quizzes       *QuizService
	Attempts      *repository.QuizAttemptRepository
	Subscriptions *repository.SubscriptionRepository
	Users         *repository.UserRepository
}

func NewQuizAttemptService(
	quizzes *QuizService,
	attempts *repository.QuizAttemptRepository,
	subscriptions *repository.SubscriptionRepository,
	users *repository.UserRepository,
) *QuizAttemptService {
	return &QuizAttemptService{
		Quizzes:       quizzes,
		Attempts:      attempts,
		Subscriptions: subscriptions,
		Users:         users,
	}
}

type SubmittedAnswer struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedAnswer string `json:"selectedAnswer"`
}

type SubmitAttemptReq struct {
	QuizID    string            `json:"quizId" validate:"required"`
	Answers   []SubmittedAnswer `json:"answers" validate:"required,min=1,dive"`
	StartTime *time.Time        `json:"startTime"`
}

type GradedAnswer struct {
	QuestionID     string `json:"questionId"`
	Question       string `json:"question,omitempty"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer,omitempty"`
	IsCorrect      bool   `json:"isCorrect"`
}

type AttemptResult struct {
	AttemptID   string         `json:"attemptId"`
	QuizID      string         `json:"quizId"`
	LessonName  string         `json:"lessonName"`
	Marks       int            `json:"marks"`
	TotalMarks  int            `json:"totalMarks"`
	Percentage  float64        `json:"percentage"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`
	Answers     []GradedAnswer `json:"answers"`
}

// GradeAnswers 严格区分大小写的字符串比较，未提交的题目记为 Not Answered。
// 返回结果按测验题目顺序排列，分母为测验题目总数。
func GradeAnswers(quiz *model.Quiz, submitted []SubmittedAnswer) ([]model.QuizAnswer, int, error) {
	index := quiz.QuestionIndex()
	selected := make(map[string]string, len(submitted))
	for _, a := range submitted {
		if _, ok := index[a.QuestionID]; !ok {
			return nil, 0, util.NewValidationError("question %s does not belong to this quiz", a.QuestionID)
		}
		if _, dup := selected[a.QuestionID]; dup {
			return nil, 0, util.NewValidationError("question %s answered more than once", a.QuestionID)
		}
		answer := a.SelectedAnswer
		if strings.TrimSpace(answer) == "" {
			answer = model.NotAnswered
		}
		selected[a.QuestionID] = answer
	}

	marks := 0
	answers := make([]model.QuizAnswer, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		answer, ok := selected[q.ID]
		if !ok {
			answer = model.NotAnswered
		}
		correct := answer != model.NotAnswered && answer == q.CorrectAnswer
		if correct {
			marks++
		}
		answers = append(answers, model.QuizAnswer{
			QuestionID:     q.ID,
			SelectedAnswer: answer,
			IsCorrect:      correct,
		})
	}
	return answers, marks, nil
}

func newAttemptResult(quiz *model.Quiz, attempt *model.QuizAttempt, reveal bool) *AttemptResult {
	index := quiz.QuestionIndex()
	result := &AttemptResult{
		AttemptID:   attempt.ID,
		QuizID:      quiz.ID,
		LessonName:  quiz.LessonName,
		Marks:       attempt.Marks,
		TotalMarks:  attempt.TotalMarks,
		Percentage:  model.Percentage(attempt.Marks, attempt.TotalMarks),
		StartTime:   attempt.StartTime,
		AttemptedAt: attempt.AttemptedAt,
		Answers:     make([]GradedAnswer, 0, len(attempt.Answers)),
	}
	for _, a := range attempt.Answers {
		g := GradedAnswer{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      a.IsCorrect,
		}
		if q, ok := index[a.QuestionID]; ok && reveal {
			g.Question = q.Question
			g.CorrectAnswer = q.CorrectAnswer
		}
		result.Answers = append(result.Answers, g)
	}
	return result
}

// SubmitAttempt 每个学生每份测验只能提交一次，需要班级的有效订阅
func (s *QuizAttemptService) SubmitAttempt(ctx context.Context, studentID uint, req SubmitAttemptReq) (*AttemptResult, error) {
	result, err := s.submit(ctx, studentID, req)
	outcome := monitoring.OutcomeSuccess
	if err != nil {
		outcome = monitoring.OutcomeRejected
		if util.AsAppError(err) == nil {
			outcome = monitoring.OutcomeError
		}
	}
	monitoring.QuizAttempts.WithLabelValues(outcome).Inc()
	return result, err
}

func (s *QuizAttemptService) submit(ctx context.Context, studentID uint, req SubmitAttemptReq) (*AttemptResult, error) {
	quiz, err := s.Quizzes.loadQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// 先查一次，唯一索引兜底并发重复提交
	exists, err := s.Attempts.Exists(ctx, quiz.ID, studentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadyAttempted
	}

	entitled, err := s.Subscriptions.HasActive(ctx, studentID, quiz.ClassID, time.Now())
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, util.ErrNotSubscribed
	}

	answers, marks, err := GradeAnswers(quiz, req.Answers)
	if err != nil {
		return nil, err
	}

	attempt := &model.QuizAttempt{
		QuizID:      quiz.ID,
		StudentID:   studentID,
		Answers:     answers,
		Marks:       marks,
		TotalMarks:  quiz.TotalMarks(),
		StartTime:   req.StartTime,
		AttemptedAt: time.Now(),
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyAttempted
		}
		return nil, err
	}

	logger.Log.Info("Quiz attempt graded",
		zap.String("quiz_id", quiz.ID),
		zap.Uint("student_id", studentID),
		zap.Int("marks", marks),
		zap.Int("total", attempt.TotalMarks),
	)
	return newAttemptResult(quiz, attempt, true), nil
}

// GetResult 学生查看自己在某份测验的成绩
func (s *QuizAttemptService) GetResult(ctx context.Context, studentID uint, quizID string) (*AttemptResult, error) {
	quiz, err := s.Quizzes.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.Attempts.FindByQuizAndStudent(ctx, quiz.ID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return newAttemptResult(quiz, attempt, true), nil
}

type QuizAttemptSummary struct {
	AttemptID   string    `json:"attemptId"`
	StudentID   uint      `json:"studentId"`
	StudentName string    `json:"studentName"`
	Marks       int       `json:"marks"`
	TotalMarks  int       `json:"totalMarks"`
	Percentage  float64   `json:"percentage"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// ListQuizAttempts 教师查看单份测验的成绩，按分数倒序
func (s *QuizAttemptService) ListQuizAttempts(ctx context.Context, teacherID uint, quizID string) ([]QuizAttemptSummary, error) {
	quiz, err := s.Quizzes.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.Attempts.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		studentIDs = append(studentIDs, a.StudentID)
	}
	names, err := s.Users.NamesByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	out := make([]QuizAttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, QuizAttemptSummary{
			AttemptID:   a.ID,
			StudentID:   a.StudentID,
			StudentName: names[a.StudentID],
			Marks:       a.Marks,
			TotalMarks:  a.TotalMarks,
			Percentage:  model.Percentage(a.Marks, a.TotalMarks),
			AttemptedAt: a.AttemptedAt,
		})
	}
	return out, nil
}
