package controller

import (
	"educonnect_backend/internal/service"
	"educonnect_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizAnalyticsController struct {
	Service *service.QuizAnalyticsService
}

func NewQuizAnalyticsController(svc *service.QuizAnalyticsService) *QuizAnalyticsController {
	return &QuizAnalyticsController{Service: svc}
}

// @Summary 学生测验历史
// @Tags 测验统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quiz/student/history [get]
func (c *QuizAnalyticsController) StudentHistory(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.Service.StudentHistory(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"attempts": items})
}

// @Summary 教师测验报告
// @Description 名下所有测验及学生成绩，按分数倒序
// @Tags 测验统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quiz/teacher/attempts [get]
func (c *QuizAnalyticsController) TeacherReport(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.Service.TeacherReport(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, report)
}

// @Summary 课程排行榜
// @Description 同分时先提交者排名靠前
// @Tags 测验统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quiz/student/leaderboard [get]
func (c *QuizAnalyticsController) Leaderboard(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	boards, err := c.Service.Leaderboard(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"leaderboards": boards})
}

// @Summary 个性化学习路径
// @Tags 测验统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quiz/student/learning-path [get]
func (c *QuizAnalyticsController) LearningPath(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.LearningPath(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
