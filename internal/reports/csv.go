package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/railconcession/concession_backend/internal/models"
)

// ApplicationsCSVHeader is the first row of every applications export.
var ApplicationsCSVHeader = []string{
	"Application ID",
	"Student ID",
	"Student Name",
	"Department",
	"Route From",
	"Route To",
	"Category",
	"Status",
	"Certificate No",
	"Application Date",
	"Approve Date",
}

// WriteApplicationsCSV renders apps as RFC 4180 CSV. Department comes from the
// preloaded student and is empty when the student was not loaded.
func WriteApplicationsCSV(w io.Writer, apps []models.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ApplicationsCSVHeader); err != nil {
		return err
	}
	for i := range apps {
		if err := cw.Write(applicationRow(&apps[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func applicationRow(a *models.Application) []string {
	return []string{
		strconv.FormatUint(uint64(a.ID), 10),
		a.StudentID,
		a.StudentName,
		a.Department(),
		a.RouteFrom,
		a.RouteTo,
		a.Category,
		string(a.Status),
		deref(a.CurrentCertificateNo),
		a.ApplicationDate.Format(time.RFC3339),
		formatTime(a.ApproveDate),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
