package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/railconcession/concession_backend/internal/services"
	"github.com/railconcession/concession_backend/internal/ws"
)

type RealtimeController struct {
	Hubs *ws.Hubs
	Apps *services.ApplicationService
}

// Staff streams application events for the caller's department group.
func (rc *RealtimeController) Staff(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if rc.Hubs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
		return
	}
	departments := rc.Apps.DepartmentsFor(p.Department)
	if err := rc.Hubs.Staff.ServeStaff(c.Writer, c.Request, departments); err != nil {
		// The upgrader has already written the failure response.
		log.Warn().Err(err).Str("staff", p.Subject).Msg("staff websocket upgrade failed")
	}
}

// Student streams events about the caller's own applications.
func (rc *RealtimeController) Student(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if rc.Hubs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
		return
	}
	if err := rc.Hubs.Student.ServeStudent(c.Writer, c.Request, p.Subject); err != nil {
		log.Warn().Err(err).Str("student_id", p.Subject).Msg("student websocket upgrade failed")
	}
}
