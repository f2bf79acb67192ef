package service

import (
	"context"
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/repository"
	"educonnect_backend/internal/util"
	"educonnect_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	leaderboardTopN             = 3
	learningPathCacheKeyPrefix  = "quiz:learning_path:"
	learningPathSystemPrompt    = "You are a supportive tutor who writes short, concrete study plans for students."
	defaultWeakTopicThreshold   = 60.0
	defaultLearningPathCacheTTL = 12 * time.Hour
)

type QuizAnalyticsService struct {
	Quizzes       *QuizService
	Attempts      *repository.QuizAttemptRepository
	Subscriptions *repository.SubscriptionRepository
	AI            TextGenerator
	Redis         *redis.Client
	Config        config.QuizConfig
}

func NewQuizAnalyticsService(
	quizzes *QuizService,
	attempts *repository.QuizAttemptRepository,
	subscriptions *repository.SubscriptionRepository,
	ai TextGenerator,
	rdb *redis.Client,
	cfg config.QuizConfig,
) *QuizAnalyticsService {
	return &QuizAnalyticsService{
		Quizzes:       quizzes,
		Attempts:      attempts,
		Subscriptions: subscriptions,
		AI:            ai,
		Redis:         rdb,
		Config:        cfg,
	}
}

type AttemptHistoryItem struct {
	repository.AttemptRow
	Percentage float64 `json:"percentage"`
}

func withPercentage(rows []repository.AttemptRow) []AttemptHistoryItem {
	out := make([]AttemptHistoryItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, AttemptHistoryItem{AttemptRow: r, Percentage: model.Percentage(r.Marks, r.TotalMarks)})
	}
	return out
}

// StudentHistory 学生全部作答记录，最近的在前
func (s *QuizAnalyticsService) StudentHistory(ctx context.Context, studentID uint) ([]AttemptHistoryItem, error) {
	rows, err := s.Attempts.RowsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return withPercentage(rows), nil
}

type TeacherReport struct {
	Quizzes  []TeacherQuizSummary `json:"quizzes"`
	Attempts []AttemptHistoryItem `json:"attempts"`
}

// TeacherReport 教师名下所有测验及其作答记录，按分数倒序
func (s *QuizAnalyticsService) TeacherReport(ctx context.Context, teacherID uint) (*TeacherReport, error) {
	quizzes, err := s.Quizzes.ListTeacherQuizzes(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	rows, err := s.Attempts.RowsByQuizIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	SortForRanking(rows)

	return &TeacherReport{Quizzes: quizzes, Attempts: withPercentage(rows)}, nil
}

// SortForRanking 分数高者在前；同分时先提交者在前；再按作答 ID 保证稳定
func SortForRanking(rows []repository.AttemptRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Marks != rows[j].Marks {
			return rows[i].Marks > rows[j].Marks
		}
		if !rows[i].AttemptedAt.Equal(rows[j].AttemptedAt) {
			return rows[i].AttemptedAt.Before(rows[j].AttemptedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	StudentID   uint      `json:"studentId"`
	StudentName string    `json:"studentName"`
	Marks       int       `json:"marks"`
	TotalMarks  int       `json:"totalMarks"`
	Percentage  float64   `json:"percentage"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

type LessonLeaderboard struct {
	LessonName        string             `json:"lessonName"`
	TotalParticipants int                `json:"totalParticipants"`
	MyRank            int                `json:"myRank"`
	MyMarks           int                `json:"myMarks"`
	MyTotalMarks      int                `json:"myTotalMarks"`
	TopPerformers     []LeaderboardEntry `json:"topPerformers"`
}

// BuildLeaderboards 按课程名分组后各自排名（从 1 开始），只返回该学生参与过的课程
func BuildLeaderboards(rows []repository.AttemptRow, studentID uint) []LessonLeaderboard {
	byLesson := make(map[string][]repository.AttemptRow)
	for _, r := range rows {
		byLesson[r.LessonName] = append(byLesson[r.LessonName], r)
	}

	lessons := make([]string, 0, len(byLesson))
	for name := range byLesson {
		lessons = append(lessons, name)
	}
	sort.Strings(lessons)

	out := []LessonLeaderboard{}
	for _, name := range lessons {
		group := byLesson[name]
		SortForRanking(group)

		board := LessonLeaderboard{LessonName: name}
		participants := make(map[uint]bool)
		for i, r := range group {
			participants[r.StudentID] = true
			if r.StudentID == studentID && board.MyRank == 0 {
				board.MyRank = i + 1
				board.MyMarks = r.Marks
				board.MyTotalMarks = r.TotalMarks
			}
			if i < leaderboardTopN {
				board.TopPerformers = append(board.TopPerformers, LeaderboardEntry{
					Rank:        i + 1,
					StudentID:   r.StudentID,
					StudentName: r.StudentName,
					Marks:       r.Marks,
					TotalMarks:  r.TotalMarks,
					Percentage:  model.Percentage(r.Marks, r.TotalMarks),
					AttemptedAt: r.AttemptedAt,
				})
			}
		}
		if board.MyRank == 0 {
			continue
		}
		board.TotalParticipants = len(participants)
		out = append(out, board)
	}
	return out
}

// Leaderboard 仅统计学生当前有效订阅的班级
func (s *QuizAnalyticsService) Leaderboard(ctx context.Context, studentID uint) ([]LessonLeaderboard, error) {
	fp, err := s.Attempts.Fingerprint(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if fp.Count == 0 {
		return nil, util.ErrNoQuizData
	}

	classIDs, err := s.Subscriptions.ActiveClassIDs(ctx, studentID, time.Now())
	if err != nil {
		return nil, err
	}
	rows, err := s.Attempts.RowsByClassIDs(ctx, classIDs)
	if err != nil {
		return nil, err
	}

	boards := BuildLeaderboards(rows, studentID)
	if len(boards) == 0 {
		return nil, util.ErrNoQuizData
	}
	return boards, nil
}

type TopicPerformance struct {
	LessonName string  `json:"lessonName"`
	Subject    string  `json:"subject,omitempty"`
	Attempts   int     `json:"attempts"`
	Marks      int     `json:"marks"`
	TotalMarks int     `json:"totalMarks"`
	Percentage float64 `json:"percentage"`
	Weak       bool    `json:"weak"`
}

type PerformanceSummary struct {
	TotalAttempts     int                `json:"totalAttempts"`
	OverallPercentage float64            `json:"overallPercentage"`
	Topics            []TopicPerformance `json:"topics"`
	WeakTopics        []string           `json:"weakTopics"`
}

// SummarizePerformance 按课程汇总正确率，低于阈值的标记为薄弱
func SummarizePerformance(rows []repository.AttemptRow, weakThreshold float64) PerformanceSummary {
	topics := make(map[string]*TopicPerformance)
	order := []string{}
	marks, total := 0, 0
	for _, r := range rows {
		t, ok := topics[r.LessonName]
		if !ok {
			t = &TopicPerformance{LessonName: r.LessonName, Subject: r.Subject}
			topics[r.LessonName] = t
			order = append(order, r.LessonName)
		}
		t.Attempts++
		t.Marks += r.Marks
		t.TotalMarks += r.TotalMarks
		marks += r.Marks
		total += r.TotalMarks
	}
	sort.Strings(order)

	summary := PerformanceSummary{
		TotalAttempts:     len(rows),
		OverallPercentage: model.Percentage(marks, total),
		Topics:            make([]TopicPerformance, 0, len(order)),
		WeakTopics:        []string{},
	}
	for _, name := range order {
		t := topics[name]
		t.Percentage = model.Percentage(t.Marks, t.TotalMarks)
		t.Weak = t.Percentage < weakThreshold
		if t.Weak {
			summary.WeakTopics = append(summary.WeakTopics, name)
		}
		summary.Topics = append(summary.Topics, *t)
	}
	return summary
}

func BuildLearningPathPrompt(summary PerformanceSummary, weakThreshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A student has completed %d quizzes with an overall score of %.2f%%.\n", summary.TotalAttempts, summary.OverallPercentage)
	b.WriteString("Performance by topic:\n")
	for _, t := range summary.Topics {
		status := "ok"
		if t.Weak {
			status = "weak"
		}
		fmt.Fprintf(&b, "- %s: %d/%d correct (%.2f%%, %s)\n", t.LessonName, t.Marks, t.TotalMarks, t.Percentage, status)
	}
	fmt.Fprintf(&b, "Topics below %.0f%% are weak.\n", weakThreshold)
	b.WriteString("Respond with only a JSON object of the form ")
	b.WriteString(`{"summary": "<two sentences>", "focusAreas": ["<topic and what to practise>"], "motivation": "<one sentence>"}`)
	b.WriteString(". Do not include any other text.")
	return b.String()
}

type LearningPlan struct {
	Summary    string   `json:"summary"`
	FocusAreas []string `json:"focusAreas"`
	Motivation string   `json:"motivation"`
}

type LearningPathResult struct {
	Plan        LearningPlan       `json:"plan"`
	Performance PerformanceSummary `json:"performance"`
	Cached      bool               `json:"cached"`
}

// ExtractJSONObject 去掉代码块标记和前后说明文字，取最外层 JSON 对象
func ExtractJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.Index(text, "\n"); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseLearningPlan 三个字段缺一不可
func ParseLearningPlan(text string) (*LearningPlan, error) {
	body, ok := ExtractJSONObject(text)
	if !ok {
		return nil, util.NewGenerationParseError(fmt.Errorf("no JSON object in response"))
	}

	var plan LearningPlan
	if err := json.Unmarshal([]byte(body), &plan); err != nil {
		return nil, util.NewGenerationParseError(err)
	}
	plan.Summary = strings.TrimSpace(plan.Summary)
	plan.Motivation = strings.TrimSpace(plan.Motivation)
	if plan.Summary == "" || plan.Motivation == "" || len(plan.FocusAreas) == 0 {
		return nil, util.NewGenerationParseError(fmt.Errorf("missing summary, focusAreas or motivation"))
	}
	return &plan, nil
}

func (s *QuizAnalyticsService) weakThreshold() float64 {
	if s.Config.WeakTopicThreshold > 0 {
		return s.Config.WeakTopicThreshold
	}
	return defaultWeakTopicThreshold
}

func (s *QuizAnalyticsService) cacheTTL() time.Duration {
	if s.Config.LearningPathCacheTTLMinutes > 0 {
		return time.Duration(s.Config.LearningPathCacheTTLMinutes) * time.Minute
	}
	return defaultLearningPathCacheTTL
}

func learningPathCacheKey(studentID uint, fp repository.AttemptFingerprint) string {
	return fmt.Sprintf("%s%d:%d:%s", learningPathCacheKeyPrefix, studentID, fp.Count, fp.LatestID)
}

func (s *QuizAnalyticsService) cachedPlan(ctx context.Context, key string) (*LearningPlan, bool) {
	if s.Redis == nil {
		return nil, false
	}
	val, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Learning path cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var plan LearningPlan
	if err := json.Unmarshal([]byte(val), &plan); err != nil {
		return nil, false
	}
	return &plan, true
}

func (s *QuizAnalyticsService) storePlan(ctx context.Context, key string, plan *LearningPlan) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, s.cacheTTL()).Err(); err != nil {
		logger.Log.Warn("Learning path cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// LearningPath 根据学生各课程正确率请求生成个性化学习建议
func (s *QuizAnalyticsService) LearningPath(ctx context.Context, studentID uint) (*LearningPathResult, error) {
	fp, err := s.Attempts.Fingerprint(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if fp.Count == 0 {
		return nil, util.ErrNoQuizData
	}

	rows, err := s.Attempts.RowsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	threshold := s.weakThreshold()
	summary := SummarizePerformance(rows, threshold)

	key := learningPathCacheKey(studentID, fp)
	if plan, ok := s.cachedPlan(ctx, key); ok {
		return &LearningPathResult{Plan: *plan, Performance: summary, Cached: true}, nil
	}

	if s.AI == nil || !s.AI.Configured() {
		return nil, util.ErrAIKeyMissing
	}

	raw, err := s.AI.Complete(ctx, learningPathSystemPrompt, BuildLearningPathPrompt(summary, threshold))
	if err != nil {
		logger.Log.Error("Learning path generation failed", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, util.NewExternalServiceError(err)
	}

	plan, err := ParseLearningPlan(raw)
	if err != nil {
		logger.Log.Warn("Learning path response not parseable", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}

	s.storePlan(ctx, key, plan)
	return &LearningPathResult{Plan: *plan, Performance: summary}, nil
}
