package middleware

import (
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "middleware-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(AuthMiddleware(cfg))
	r.GET("/any", func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/teacher", RoleMiddleware(model.Teacher), func(c *gin.Context) {
		util.Success(c, nil)
	})
	return r
}

func bearer(t *testing.T, id uint, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, secret, ttl)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return "Bearer " + token
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing token", "/any", "", http.StatusUnauthorized},
		{"wrong secret", "/any", bearer(t, 1, model.Student, "other-secret", time.Hour), http.StatusUnauthorized},
		{"expired", "/any", bearer(t, 1, model.Student, testSecret, -time.Minute), http.StatusUnauthorized},
		{"valid student", "/any", bearer(t, 1, model.Student, testSecret, time.Hour), http.StatusOK},
		{"student on teacher route", "/teacher", bearer(t, 1, model.Student, testSecret, time.Hour), http.StatusForbidden},
		{"teacher on teacher route", "/teacher", bearer(t, 2, model.Teacher, testSecret, time.Hour), http.StatusOK},
		{"admin passes role gate", "/teacher", bearer(t, 3, model.Admin, testSecret, time.Hour), http.StatusOK},
		{"institute blocked", "/teacher", bearer(t, 4, model.Institute, testSecret, time.Hour), http.StatusForbidden},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}
