package models

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusRejected ApplicationStatus = "REJECTED"
)

// AllStatuses lists every status in display order.
var AllStatuses = []ApplicationStatus{StatusPending, StatusApproved, StatusRejected}

// ParseApplicationStatus accepts any casing and surrounding whitespace.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	s := ApplicationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func (s ApplicationStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultRouteTo is the college station used when a submission leaves the destination blank.
const DefaultRouteTo = "Nerul"

// Application is a concession request. StudentName and StudentDOB are a
// snapshot taken at submission time. Student is only populated when the
// query preloads it.
type Application struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	StudentID            string            `gorm:"size:32;not null;index" json:"student_id"`
	Student              *Student          `gorm:"foreignKey:StudentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"student,omitempty"`
	StudentName          string            `gorm:"size:100;not null" json:"student_name"`
	StudentDOB           string            `gorm:"column:student_dob;size:10;not null" json:"student_dob"`
	Category             string            `gorm:"size:50" json:"category"`
	CasteCertificate     *string           `gorm:"size:255" json:"caste_certificate"`
	AadharCard           string            `gorm:"size:255;not null" json:"aadhar_card"`
	RouteFrom            string            `gorm:"size:100;not null" json:"route_from"`
	RouteTo              string            `gorm:"size:100" json:"route_to"`
	PrevCertificateNo    string            `gorm:"size:50" json:"prev_certificate_no"`
	CurrentCertificateNo *string           `gorm:"size:50;index" json:"current_certificate_no"`
	Status               ApplicationStatus `gorm:"size:20;not null;index" json:"status"`
	ApplicationDate      time.Time         `gorm:"not null" json:"application_date"`
	ApproveDate          *time.Time        `json:"approve_date"`
	IssueDate            *time.Time        `json:"issue_date"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Department returns the owning student's department, or "" when the student was not loaded.
func (a *Application) Department() string {
	if a.Student == nil {
		return ""
	}
	return a.Student.Department
}

// RequiresCasteCertificate reports whether a category claim must be backed by a caste certificate.
func RequiresCasteCertificate(category string) bool {
	c := strings.TrimSpace(category)
	return strings.EqualFold(c, "SC") || strings.EqualFold(c, "ST")
}
