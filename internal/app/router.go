package app

import (
	"educonnect_backend/docs"
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/middleware"
	"educonnect_backend/internal/model"
	"educonnect_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	quiz := router.Group("/api/quiz")
	quiz.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerTeacherQuizRoutes(quiz, c)
		a.registerStudentQuizRoutes(quiz, c)

		// 教师与学生看到的内容不同，由服务层区分
		quiz.GET("/:quizId", c.quiz.GetQuiz)
	}
}

func (a *App) registerTeacherQuizRoutes(group *gin.RouterGroup, c *controllers) {
	teacherOnly := middleware.RoleMiddleware(model.Teacher)

	group.POST("/generate", teacherOnly, c.quiz.GenerateQuiz)
	group.PUT("/:quizId/timer", teacherOnly, c.quiz.UpdateTimer)
	group.DELETE("/:quizId", teacherOnly, c.quiz.DeleteQuiz)

	teacher := group.Group("/teacher")
	teacher.Use(teacherOnly)
	{
		teacher.GET("/classes", c.quiz.ListTeacherClasses)
		teacher.GET("/quizzes", c.quiz.ListTeacherQuizzes)
		teacher.GET("/attempts", c.quizAnalytics.TeacherReport)
		teacher.GET("/:quizId/attempts", c.quiz.ListQuizAttempts)
	}
}

func (a *App) registerStudentQuizRoutes(group *gin.RouterGroup, c *controllers) {
	studentOnly := middleware.RoleMiddleware(model.Student)

	group.POST("/attempt", studentOnly, c.quiz.SubmitAttempt)
	group.GET("/results/:quizId", studentOnly, c.quiz.GetResult)

	student := group.Group("/student")
	student.Use(studentOnly)
	{
		student.GET("/available", c.quiz.ListAvailableQuizzes)
		student.GET("/history", c.quizAnalytics.StudentHistory)
		student.GET("/leaderboard", c.quizAnalytics.Leaderboard)
		student.GET("/learning-path", c.quizAnalytics.LearningPath)
	}
}
