package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth(t *testing.T) (*services.AuthService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Staff{}, &models.RevokedToken{}))
	return services.NewAuthService(db, "test-secret", time.Hour), db
}

func newRouter(auth *services.AuthService, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/who", AuthMiddleware(auth), RequireRoles(roles...), func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": p.Subject, "role": p.Role})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	auth, db := newAuth(t)
	require.NoError(t, db.Create(&models.Student{ID: "S1", Name: "Asha", DOB: "2003-05-14", Department: "FEIT"}).Error)
	token, err := auth.IssueStudentToken(&models.Student{ID: "S1", Department: "FEIT"})
	require.NoError(t, err)

	r := newRouter(auth, models.RoleStudent, models.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "S1", body["subject"])
	assert.Equal(t, models.RoleStudent, body["role"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/who?token="+token, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "query tokens are only honoured on websocket upgrades")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/who?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	auth, db := newAuth(t)
	require.NoError(t, db.Create(&models.Student{ID: "S1", Name: "Asha", DOB: "2003-05-14"}).Error)
	token, err := auth.IssueStudentToken(&models.Student{ID: "S1"})
	require.NoError(t, err)

	r := newRouter(auth, models.RoleStaff)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleAPIError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperrors.Validation("studentId is required"), http.StatusBadRequest, "studentId is required"},
		{apperrors.Conflict("Email already registered"), http.StatusBadRequest, "Email already registered"},
		{apperrors.NotFound("Application not found"), http.StatusNotFound, "Application not found"},
		{apperrors.Unauthorized("invalid token"), http.StatusUnauthorized, "invalid token"},
		{apperrors.Forbidden("not your application"), http.StatusForbidden, "not your application"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleAPIError(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.msg, body["error"])
	}
}
