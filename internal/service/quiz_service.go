package service

import (
	"context"
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/repository"
	"educonnect_backend/internal/util"
	"educonnect_backend/pkg/logger"
	"educonnect_backend/pkg/monitoring"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const quizGeneratorSystemPrompt = "You are an experienced teacher who writes clear, unambiguous multiple-choice quiz questions."

// Caller 当前登录用户
type Caller struct {
	UserID uint
	Role   model.UserRole
}

type QuizService struct {
	Quizzes       *repository.QuizRepository
	Attempts      *repository.QuizAttemptRepository
	Classes       *repository.ClassRepository
	Subscriptions *repository.SubscriptionRepository
	AI            TextGenerator
	Storage       *StorageService
	Config        config.QuizConfig
}

func NewQuizService(
	quizzes *repository.QuizRepository,
	attempts *repository.QuizAttemptRepository,
	classes *repository.ClassRepository,
	subscriptions *repository.SubscriptionRepository,
	ai TextGenerator,
	storage *StorageService,
	cfg config.QuizConfig,
) *QuizService {
	return &QuizService{
		Quizzes:       quizzes,
		Attempts:      attempts,
		Classes:       classes,
		Subscriptions: subscriptions,
		AI:            ai,
		Storage:       storage,
		Config:        cfg,
	}
}

type GenerateQuizReq struct {
	LessonName        string `json:"lessonName" validate:"required"`
	ClassID           uint   `json:"classId" validate:"required"`
	NumberOfQuestions int    `json:"numberOfQuestions" validate:"required,min=1"`
	Timer             int    `json:"timer" validate:"required,min=1"`
}

// GenerateQuiz 调用文本生成服务出题，解析数量与请求一致才落库，否则整体丢弃
func (s *QuizService) GenerateQuiz(ctx context.Context, teacherID uint, req GenerateQuizReq) (*model.Quiz, error) {
	req.LessonName = strings.TrimSpace(req.LessonName)
	if err := validateRequest(req); err != nil {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeRejected).Inc()
		return nil, err
	}
	if s.Config.MaxQuestions > 0 && req.NumberOfQuestions > s.Config.MaxQuestions {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeRejected).Inc()
		return nil, util.NewValidationError("numberOfQuestions must be at most %d", s.Config.MaxQuestions)
	}

	if _, err := s.ownedClass(ctx, teacherID, req.ClassID); err != nil {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeRejected).Inc()
		return nil, err
	}

	if s.AI == nil || !s.AI.Configured() {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeError).Inc()
		return nil, util.ErrAIKeyMissing
	}

	raw, err := s.AI.Complete(ctx, quizGeneratorSystemPrompt, BuildQuizPrompt(req.LessonName, req.NumberOfQuestions))
	if err != nil {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeError).Inc()
		logger.Log.Error("Quiz generation call failed",
			zap.Uint("teacher_id", teacherID),
			zap.String("lesson", req.LessonName),
			zap.Error(err),
		)
		return nil, util.NewExternalServiceError(err)
	}

	questions := ParseGeneratedQuestions(raw)
	quizID := model.GenerateUUID()
	s.archiveTranscript(ctx, teacherID, quizID, raw)

	if len(questions) != req.NumberOfQuestions {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeMismatch).Inc()
		logger.Log.Warn("Generated question count mismatch",
			zap.Uint("teacher_id", teacherID),
			zap.Int("requested", req.NumberOfQuestions),
			zap.Int("parsed", len(questions)),
		)
		return nil, util.NewGenerationMismatchError("expected %d questions but the generator produced %d valid questions, please try again",
			req.NumberOfQuestions, len(questions))
	}

	quiz := &model.Quiz{
		UUIDBase:   model.UUIDBase{ID: quizID},
		LessonName: req.LessonName,
		ClassID:    req.ClassID,
		TeacherID:  teacherID,
		Timer:      req.Timer,
		Questions:  questions,
	}
	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeError).Inc()
		return nil, err
	}

	monitoring.QuizGenerations.WithLabelValues(monitoring.OutcomeSuccess).Inc()
	logger.Log.Info("Quiz generated",
		zap.String("quiz_id", quiz.ID),
		zap.Uint("class_id", quiz.ClassID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

func transcriptName(teacherID uint, generationID string) string {
	return fmt.Sprintf("%s/%d/%s.txt", util.GenerationArchivePrefix, teacherID, generationID)
}

// archiveTranscript 失败只记日志，不影响出题结果
func (s *QuizService) archiveTranscript(ctx context.Context, teacherID uint, generationID, raw string) {
	if s.Storage == nil || !s.Config.ArchiveGenerationTranscripts {
		return
	}
	if _, err := s.Storage.UploadText(ctx, transcriptName(teacherID, generationID), raw); err != nil {
		logger.Log.Warn("Failed to archive generation transcript",
			zap.String("generation_id", generationID),
			zap.Error(err),
		)
	}
}

func (s *QuizService) ownedClass(ctx context.Context, teacherID, classID uint) (*model.Class, error) {
	class, err := s.Classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrClassNotFound
		}
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, util.ErrNotClassOwner
	}
	return class, nil
}

// loadQuiz 非法 ID 与不存在的测验都按未找到处理
func (s *QuizService) loadQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	if !model.IsUUID(quizID) {
		return nil, util.ErrQuizNotFound
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

// ownsQuiz 直接创建者或班级任课教师
func (s *QuizService) ownsQuiz(ctx context.Context, teacherID uint, quiz *model.Quiz) (bool, error) {
	if quiz.TeacherID == teacherID {
		return true, nil
	}
	class, err := s.Classes.FindByID(ctx, quiz.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return class.TeacherID == teacherID, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, teacherID uint, quizID string) (*model.Quiz, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	owns, err := s.ownsQuiz(ctx, teacherID, quiz)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, util.ErrNotQuizOwner
	}
	return quiz, nil
}

type StudentQuestionView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// StudentQuizView 学生端看不到正确答案
type StudentQuizView struct {
	ID         string                `json:"id"`
	LessonName string                `json:"lessonName"`
	ClassID    uint                  `json:"classId"`
	Timer      int                   `json:"timer"`
	TotalMarks int                   `json:"totalMarks"`
	Attempted  bool                  `json:"attempted"`
	CreatedAt  time.Time             `json:"createdAt"`
	Questions  []StudentQuestionView `json:"questions"`
}

func newStudentQuizView(quiz *model.Quiz, attempted bool) *StudentQuizView {
	view := &StudentQuizView{
		ID:         quiz.ID,
		LessonName: quiz.LessonName,
		ClassID:    quiz.ClassID,
		Timer:      quiz.Timer,
		TotalMarks: quiz.TotalMarks(),
		Attempted:  attempted,
		CreatedAt:  quiz.CreatedAt,
		Questions:  make([]StudentQuestionView, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		view.Questions = append(view.Questions, StudentQuestionView{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options(),
		})
	}
	return view
}

// GetQuiz 教师（含管理员）返回完整测验，已订阅的学生返回隐藏答案的视图
func (s *QuizService) GetQuiz(ctx context.Context, caller Caller, quizID string) (interface{}, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case model.Admin:
		return quiz, nil
	case model.Teacher:
		owns, err := s.ownsQuiz(ctx, caller.UserID, quiz)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, util.ErrNotQuizOwner
		}
		return quiz, nil
	case model.Student:
		ok, err := s.Subscriptions.HasActive(ctx, caller.UserID, quiz.ClassID, time.Now())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotSubscribed
		}
		attempted, err := s.Attempts.Exists(ctx, quiz.ID, caller.UserID)
		if err != nil {
			return nil, err
		}
		return newStudentQuizView(quiz, attempted), nil
	default:
		return nil, util.NewAuthorizationError("role %q cannot view quizzes", caller.Role)
	}
}

type UpdateTimerReq struct {
	Timer int `json:"timer" validate:"required,min=1"`
}

func (s *QuizService) UpdateTimer(ctx context.Context, teacherID uint, quizID string, req UpdateTimerReq) (*model.Quiz, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.Quizzes.UpdateTimer(ctx, quiz.ID, req.Timer); err != nil {
		return nil, err
	}
	quiz.Timer = req.Timer
	return quiz, nil
}

// DeleteQuiz 级联删除所有作答记录
func (s *QuizService) DeleteQuiz(ctx context.Context, teacherID uint, quizID string) error {
	quiz, err := s.ownedQuiz(ctx, teacherID, quizID)
	if err != nil {
		return err
	}
	if err := s.Quizzes.DeleteWithAttempts(ctx, quiz.ID); err != nil {
		return err
	}

	if s.Storage != nil && s.Config.ArchiveGenerationTranscripts {
		if err := s.Storage.Delete(ctx, transcriptName(quiz.TeacherID, quiz.ID)); err != nil {
			logger.Log.Debug("Transcript cleanup skipped", zap.String("quiz_id", quiz.ID), zap.Error(err))
		}
	}

	logger.Log.Info("Quiz deleted", zap.String("quiz_id", quiz.ID), zap.Uint("teacher_id", teacherID))
	return nil
}

func (s *QuizService) ListTeacherClasses(ctx context.Context, teacherID uint) ([]model.Class, error) {
	return s.Classes.ListByTeacher(ctx, teacherID)
}

type TeacherQuizSummary struct {
	ID            string    `json:"id"`
	LessonName    string    `json:"lessonName"`
	ClassID       uint      `json:"classId"`
	ClassName     string    `json:"className"`
	Timer         int       `json:"timer"`
	QuestionCount int       `json:"questionCount"`
	AttemptCount  int64     `json:"attemptCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// teacherQuizzes 教师直接创建的测验与其班级下的测验
func (s *QuizService) teacherQuizzes(ctx context.Context, teacherID uint) ([]model.Quiz, error) {
	classIDs, err := s.Classes.IDsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return s.Quizzes.ListForTeacher(ctx, teacherID, classIDs)
}

func (s *QuizService) ListTeacherQuizzes(ctx context.Context, teacherID uint) ([]TeacherQuizSummary, error) {
	quizzes, err := s.teacherQuizzes(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(quizzes))
	classIDs := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
		classIDs = append(classIDs, q.ClassID)
	}
	counts, err := s.Attempts.CountByQuizIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	classes, err := s.Classes.FindByIDs(ctx, classIDs)
	if err != nil {
		return nil, err
	}

	out := make([]TeacherQuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, TeacherQuizSummary{
			ID:            q.ID,
			LessonName:    q.LessonName,
			ClassID:       q.ClassID,
			ClassName:     classes[q.ClassID].Name,
			Timer:         q.Timer,
			QuestionCount: len(q.Questions),
			AttemptCount:  counts[q.ID],
			CreatedAt:     q.CreatedAt,
		})
	}
	return out, nil
}

type AvailableQuiz struct {
	ID            string    `json:"id"`
	LessonName    string    `json:"lessonName"`
	ClassID       uint      `json:"classId"`
	ClassName     string    `json:"className"`
	Subject       string    `json:"subject"`
	Timer         int       `json:"timer"`
	QuestionCount int       `json:"questionCount"`
	Attempted     bool      `json:"attempted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ListAvailableQuizzes 学生有效订阅班级下的测验，按创建时间倒序
func (s *QuizService) ListAvailableQuizzes(ctx context.Context, studentID uint) ([]AvailableQuiz, error) {
	classIDs, err := s.Subscriptions.ActiveClassIDs(ctx, studentID, time.Now())
	if err != nil {
		return nil, err
	}
	out := []AvailableQuiz{}
	if len(classIDs) == 0 {
		return out, nil
	}

	quizzes, err := s.Quizzes.ListByClassIDs(ctx, classIDs)
	if err != nil {
		return nil, err
	}
	attempted, err := s.Attempts.AttemptedQuizIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	classes, err := s.Classes.FindByIDs(ctx, classIDs)
	if err != nil {
		return nil, err
	}

	for _, q := range quizzes {
		class := classes[q.ClassID]
		out = append(out, AvailableQuiz{
			ID:            q.ID,
			LessonName:    q.LessonName,
			ClassID:       q.ClassID,
			ClassName:     class.Name,
			Subject:       class.Subject,
			Timer:         q.Timer,
			QuestionCount: len(q.Questions),
			Attempted:     attempted[q.ID],
			CreatedAt:     q.CreatedAt,
		})
	}
	return out, nil
}
