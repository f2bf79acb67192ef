package controller

import (
	"educonnect_backend/internal/service"
	"educonnect_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service        *service.QuizService
	AttemptService *service.QuizAttemptService
}

func NewQuizController(svc *service.QuizService, attemptSvc *service.QuizAttemptService) *QuizController {
	return &QuizController{Service: svc, AttemptService: attemptSvc}
}

func callerFromContext(ctx *gin.Context) (service.Caller, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		return service.Caller{}, false
	}
	return service.Caller{UserID: user.UserID, Role: user.Role}, true
}

// @Summary 生成测验
// @Description 调用文本生成服务按课程出题，题目数量与请求不一致时不保存
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.GenerateQuizReq true "出题参数"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /quiz/generate [post]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.GenerateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.GenerateQuiz(ctx.Request.Context(), caller.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quiz": quiz})
}

// @Summary 获取测验详情
// @Description 教师返回完整测验，学生返回不含答案的视图
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quiz/{quizId} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	quiz, err := c.Service.GetQuiz(ctx.Request.Context(), caller, ctx.Param("quizId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quiz": quiz})
}

// @Summary 修改测验时长
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Param body body service.UpdateTimerReq true "时长（分钟）"
// @Success 200 {object} util.Response
// @Router /quiz/{quizId}/timer [put]
func (c *QuizController) UpdateTimer(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateTimerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.UpdateTimer(ctx.Request.Context(), caller.UserID, ctx.Param("quizId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quiz": quiz})
}

// @Summary 删除测验
// @Description 同时删除该测验的所有作答记录
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /quiz/{quizId} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	id := ctx.Param("quizId")
	if err := c.Service.DeleteQuiz(ctx.Request.Context(), caller.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": id})
}

// @Summary 教师的班级列表
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quiz/teacher/classes [get]
func (c *QuizController) ListTeacherClasses(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	classes, err := c.Service.ListTeacherClasses(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"classes": classes})
}

// @Summary 教师的测验列表
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quiz/teacher/quizzes [get]
func (c *QuizController) ListTeacherQuizzes(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	quizzes, err := c.Service.ListTeacherQuizzes(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quizzes": quizzes})
}

// @Summary 学生可参加的测验
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quiz/student/available [get]
func (c *QuizController) ListAvailableQuizzes(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	quizzes, err := c.Service.ListAvailableQuizzes(ctx.Request.Context(), caller.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quizzes": quizzes})
}

// @Summary 提交测验答案
// @Description 每个学生每份测验只能提交一次
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitAttemptReq true "答案"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quiz/attempt [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), caller.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 查看本人测验成绩
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quiz/results/{quizId} [get]
func (c *QuizController) GetResult(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.AttemptService.GetResult(ctx.Request.Context(), caller.UserID, ctx.Param("quizId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 单份测验的学生成绩
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /quiz/teacher/{quizId}/attempts [get]
func (c *QuizController) ListQuizAttempts(ctx *gin.Context) {
	caller, ok := callerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.AttemptService.ListQuizAttempts(ctx.Request.Context(), caller.UserID, ctx.Param("quizId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"attempts": attempts})
}
