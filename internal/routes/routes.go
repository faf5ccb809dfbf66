package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/railconcession/concession_backend/internal/config"
	"github.com/railconcession/concession_backend/internal/controllers"
	"github.com/railconcession/concession_backend/internal/metrics"
	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/services"
	"github.com/railconcession/concession_backend/internal/storage"
	"github.com/railconcession/concession_backend/internal/ws"
)

// Register wires every endpoint. hubs may be nil, in which case the websocket
// endpoints answer 503.
func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, files storage.DocumentStore, hubs *ws.Hubs) *services.AuthService {
	// Services
	authSvc := services.NewAuthService(db, cfg.JWTSecret, cfg.AccessTTL())
	appSvc := services.NewApplicationService(db, files, cfg.DepartmentGroups, hubs)
	studentSvc := services.NewStudentService(db)
	staffSvc := services.NewStaffService(db)

	// Controllers
	authCtrl := &controllers.AuthController{Auth: authSvc, Students: studentSvc, Staff: staffSvc}
	appCtrl := &controllers.ApplicationController{Apps: appSvc, MaxUploadBytes: cfg.MaxUploadBytes()}
	studentCtrl := &controllers.StudentController{Students: studentSvc}
	staffCtrl := &controllers.StaffController{Staff: staffSvc}
	reportCtrl := &controllers.ReportController{Apps: appSvc}
	rtCtrl := &controllers.RealtimeController{Hubs: hubs, Apps: appSvc}

	r.GET("/metrics", metrics.Handler())

	// Public
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		v1.POST("/auth/student/login", authCtrl.StudentLogin)
		v1.POST("/auth/student/register", authCtrl.StudentRegister)
		v1.POST("/auth/staff/login", authCtrl.StaffLogin)
		v1.POST("/applications", appCtrl.Create)
	}

	// Protected
	api := r.Group("/api/v1", middleware.AuthMiddleware(authSvc))
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		// Staff only
		staff := api.Group("", middleware.RequireRoles(models.RoleStaff))
		{
			staff.GET("/applications", appCtrl.List)
			staff.GET("/applications/status/:status", appCtrl.ListByStatus)
			staff.GET("/applications/department", appCtrl.ListForDepartment)
			staff.GET("/applications/stats", appCtrl.Stats)
			staff.PUT("/applications/:id/status", appCtrl.UpdateStatus)
			staff.PUT("/applications/:id/certificate", appCtrl.AssignCertificate)

			staff.GET("/reports/applications/csv", reportCtrl.ApplicationsCSV)

			staff.GET("/students", studentCtrl.List)
			staff.GET("/students/search", studentCtrl.Search)
			staff.POST("/students/import", studentCtrl.Import)
			staff.GET("/students/:id", studentCtrl.Get)
			staff.GET("/students/:id/with-applications", studentCtrl.GetWithApplications)
			staff.PUT("/students/:id", studentCtrl.Update)
			staff.DELETE("/students/:id", studentCtrl.Delete)

			staff.GET("/staff", staffCtrl.List)
			staff.POST("/staff", staffCtrl.Create)
			staff.GET("/staff/email/:email", staffCtrl.GetByEmail)
			staff.GET("/staff/:id", staffCtrl.Get)
			staff.PUT("/staff/:id", staffCtrl.Update)
			staff.DELETE("/staff/:id", staffCtrl.Delete)

			staff.GET("/ws/staff", rtCtrl.Staff)
		}

		// Students are limited to their own records inside the handlers.
		api.GET("/applications/:id", appCtrl.Get)
		api.GET("/applications/student/:studentId", appCtrl.ListByStudent)
		api.POST("/applications/:id/aadhar", appCtrl.UploadAadhar)

		api.GET("/ws/student", middleware.RequireRoles(models.RoleStudent), rtCtrl.Student)
	}
	return authSvc
}
