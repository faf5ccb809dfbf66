package controllers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/reports"
	"github.com/railconcession/concession_backend/internal/services"
)

type ReportController struct {
	Apps *services.ApplicationService
}

// ApplicationsCSV exports the caller's department group, optionally narrowed
// to a certificate number range.
func (rc *ReportController) ApplicationsCSV(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	departments := rc.Apps.DepartmentsFor(p.Department)
	apps, _, err := rc.Apps.List(c.Request.Context(), services.ApplicationFilter{
		CertStart:   c.Query("certificateStart"),
		CertEnd:     c.Query("certificateEnd"),
		Departments: departments,
		Page:        services.Page{All: true, SortBy: "id", SortDir: "ASC"},
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteApplicationsCSV(&buf, apps); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	log.Info().
		Str("staff", p.Subject).
		Strs("departments", departments).
		Int("rows", len(apps)).
		Msg("applications report exported")
	c.Header("Content-Disposition", "attachment; filename=applications.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
