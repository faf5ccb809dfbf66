package ws

import (
	"time"

	"github.com/railconcession/concession_backend/internal/models"
)

// Event types pushed to dashboards.
const (
	EventApplicationCreated   = "application_created"
	EventStatusUpdated        = "status_updated"
	EventCertificateAssigned  = "certificate_assigned"
	EventAadharCardReuploaded = "aadhar_reuploaded"
)

// ApplicationEvent is pushed to staff of the student's department group and to the student.
type ApplicationEvent struct {
	Type          string                   `json:"type"`
	ApplicationID uint                     `json:"application_id"`
	StudentID     string                   `json:"student_id"`
	Department    string                   `json:"department"`
	Status        models.ApplicationStatus `json:"status"`
	CertificateNo *string                  `json:"certificate_no,omitempty"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// NewApplicationEvent snapshots app. The student should be preloaded so the
// event can be routed by department.
func NewApplicationEvent(eventType string, app *models.Application) ApplicationEvent {
	return ApplicationEvent{
		Type:          eventType,
		ApplicationID: app.ID,
		StudentID:     app.StudentID,
		Department:    app.Department(),
		Status:        app.Status,
		CertificateNo: app.CurrentCertificateNo,
		UpdatedAt:     app.UpdatedAt,
	}
}
