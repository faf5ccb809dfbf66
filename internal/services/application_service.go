package services

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/config"
	"github.com/railconcession/concession_backend/internal/metrics"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/storage"
	"github.com/railconcession/concession_backend/internal/ws"
)

var (
	allowedDocumentTypes = map[string]struct{}{
		"image/jpeg":      {},
		"image/jpg":       {},
		"image/png":       {},
		"application/pdf": {},
	}
	allowedDocumentExts = map[string]struct{}{
		".jpg":  {},
		".jpeg": {},
		".png":  {},
		".pdf":  {},
	}
	applicationSorts = map[string]string{
		"id":               "applications.id",
		"application_date": "applications.application_date",
		"status":           "applications.status",
		"student_id":       "applications.student_id",
		"student_name":     "applications.student_name",
		"certificate_no":   "applications.current_certificate_no",
	}
)

const (
	docTagCaste        = "caste"
	docTagAadhar       = "aadhar"
	docTagAadharUpdate = "aadhar_update"
)

type ApplicationService struct {
	db     *gorm.DB
	files  storage.DocumentStore
	groups config.DepartmentGroups
	hubs   *ws.Hubs
	now    func() time.Time
}

// NewApplicationService wires the workflow. hubs may be nil when realtime events are not wanted.
func NewApplicationService(db *gorm.DB, files storage.DocumentStore, groups config.DepartmentGroups, hubs *ws.Hubs) *ApplicationService {
	return &ApplicationService{
		db:     db,
		files:  files,
		groups: groups,
		hubs:   hubs,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateApplicationInput struct {
	StudentID             string
	StudentName           string
	StudentDOB            string
	RouteFrom             string
	RouteTo               string
	Category              string
	PreviousCertificateNo string
	CasteCertificate      *multipart.FileHeader
	AadharCard            *multipart.FileHeader
}

// CreateApplication validates a submission, stores its documents and records
// a PENDING application. An unknown student ID gets a minimal student record
// in the same transaction.
func (s *ApplicationService) CreateApplication(ctx context.Context, in CreateApplicationInput) (*models.Application, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.RouteFrom = strings.TrimSpace(in.RouteFrom)
	in.RouteTo = strings.TrimSpace(in.RouteTo)
	in.Category = strings.TrimSpace(in.Category)

	if err := s.validateSubmission(&in); err != nil {
		metrics.ApplicationsRejectedInput.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	dob, err := normalizeDate("studentDob", in.StudentDOB)
	if err != nil {
		metrics.ApplicationsRejectedInput.WithLabelValues("dob").Inc()
		return nil, err
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			if err := s.files.Remove(p); err != nil {
				log.Warn().Err(err).Str("path", p).Msg("failed to remove orphaned document")
			}
		}
	}

	var castePath *string
	if models.RequiresCasteCertificate(in.Category) {
		p, err := s.storeDocument(in.CasteCertificate, storage.CasteCertificate, in.StudentID, docTagCaste)
		if err != nil {
			return nil, err
		}
		saved = append(saved, p)
		castePath = &p
	}
	aadharPath, err := s.storeDocument(in.AadharCard, storage.AadharCard, in.StudentID, docTagAadhar)
	if err != nil {
		cleanup()
		return nil, err
	}
	saved = append(saved, aadharPath)

	routeTo := in.RouteTo
	if routeTo == "" {
		routeTo = models.DefaultRouteTo
	}
	app := models.Application{
		StudentID:         in.StudentID,
		StudentName:       in.StudentName,
		StudentDOB:        dob,
		RouteFrom:         in.RouteFrom,
		RouteTo:           routeTo,
		Category:          in.Category,
		PrevCertificateNo: strings.TrimSpace(in.PreviousCertificateNo),
		CasteCertificate:  castePath,
		AadharCard:        aadharPath,
		Status:            models.StatusPending,
		ApplicationDate:   s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student := models.Student{
			ID:       in.StudentID,
			Name:     in.StudentName,
			DOB:      dob,
			Category: in.Category,
		}
		// Concurrent first submissions for the same ID race here; the loser's insert is a no-op.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&student).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&app).Error
	})
	if err != nil {
		cleanup()
		return nil, apperrors.FromDB(err, "student not found", "application already exists")
	}

	created, err := s.Get(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	metrics.ApplicationsCreated.Inc()
	log.Info().
		Uint("application_id", created.ID).
		Str("student_id", created.StudentID).
		Str("category", created.Category).
		Msg("application created")
	s.hubs.ApplicationChanged(ws.NewApplicationEvent(ws.EventApplicationCreated, created))
	return created, nil
}

func (s *ApplicationService) validateSubmission(in *CreateApplicationInput) error {
	switch {
	case in.StudentID == "":
		return apperrors.Validation("studentId is required")
	case in.StudentName == "":
		return apperrors.Validation("studentName is required")
	case in.RouteFrom == "":
		return apperrors.Validation("routeFrom is required")
	}

	hasCaste := in.CasteCertificate != nil && in.CasteCertificate.Size > 0
	if models.RequiresCasteCertificate(in.Category) {
		if !hasCaste {
			return apperrors.Validation("Caste certificate is mandatory for SC/ST students")
		}
	} else if hasCaste {
		return apperrors.Validation("Caste certificate should not be uploaded for this category")
	}

	if in.AadharCard == nil || in.AadharCard.Size == 0 {
		return apperrors.Validation("Aadhaar card is required for address verification")
	}
	return validateDocumentType(in.AadharCard)
}

// validateDocumentType accepts a file when either its declared content type
// or its extension is an allowed image/PDF type.
func validateDocumentType(fh *multipart.FileHeader) error {
	ct := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if _, ok := allowedDocumentTypes[ct]; ok {
		return nil
	}
	if _, ok := allowedDocumentExts[strings.ToLower(filepath.Ext(fh.Filename))]; ok {
		return nil
	}
	return apperrors.Validation("Only JPG, PNG or PDF files are allowed for Aadhaar")
}

func rejectReason(err error) string {
	msg := strings.ToLower(apperrors.Message(err))
	switch {
	case strings.Contains(msg, "caste"):
		return "caste_certificate"
	case strings.Contains(msg, "aadhaar"):
		return "aadhar_card"
	}
	return "fields"
}

func (s *ApplicationService) storeDocument(fh *multipart.FileHeader, kind storage.DocumentKind, studentID, tag string) (string, error) {
	name, err := storage.DocumentName(studentID, tag, fh.Filename)
	if err != nil {
		return "", err
	}
	path, err := s.files.Save(fh, kind, name)
	if err != nil {
		return "", err
	}
	metrics.DocumentsStored.WithLabelValues(string(kind)).Inc()
	return path, nil
}

// UploadAadharCard replaces the Aadhaar document of an existing application in place.
func (s *ApplicationService) UploadAadharCard(ctx context.Context, appID uint, fh *multipart.FileHeader) (*models.Application, error) {
	if fh == nil || fh.Size == 0 {
		return nil, apperrors.Validation("Aadhaar card file is required")
	}
	if err := validateDocumentType(fh); err != nil {
		return nil, err
	}

	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}

	path, err := s.storeDocument(fh, storage.AadharCard, app.StudentID, docTagAadharUpdate)
	if err != nil {
		return nil, err
	}
	previous := app.AadharCard
	if err := s.db.WithContext(ctx).Model(&app).Update("aadhar_card", path).Error; err != nil {
		if rmErr := s.files.Remove(path); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove orphaned document")
		}
		return nil, apperrors.FromDB(err, "Application not found", "")
	}
	if previous != "" && previous != path {
		if err := s.files.Remove(previous); err != nil {
			log.Warn().Err(err).Str("path", previous).Msg("failed to remove replaced Aadhaar card")
		}
	}

	updated, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("application_id", appID).Msg("aadhaar card replaced")
	s.hubs.ApplicationChanged(ws.NewApplicationEvent(ws.EventAadharCardReuploaded, updated))
	return updated, nil
}

// UpdateApplicationStatus sets any status; APPROVED also stamps the approve date.
func (s *ApplicationService) UpdateApplicationStatus(ctx context.Context, appID uint, status models.ApplicationStatus) (*models.Application, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("Invalid status: %s", status)
	}
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}

	updates := map[string]any{"status": status}
	if status == models.StatusApproved {
		updates["approve_date"] = s.now()
	}
	if err := s.db.WithContext(ctx).Model(&app).Updates(updates).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}

	updated, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	log.Info().Uint("application_id", appID).Str("status", string(status)).Msg("application status updated")
	s.hubs.ApplicationChanged(ws.NewApplicationEvent(ws.EventStatusUpdated, updated))
	return updated, nil
}

// AssignCertificateNumber sets the current certificate number and stamps the issue date.
// It does not look at or change the status.
func (s *ApplicationService) AssignCertificateNumber(ctx context.Context, appID uint, certNo string) (*models.Application, error) {
	certNo = strings.TrimSpace(certNo)
	if certNo == "" {
		return nil, apperrors.Validation("certificateNo is required")
	}
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}
	updates := map[string]any{
		"current_certificate_no": certNo,
		"issue_date":             s.now(),
	}
	if err := s.db.WithContext(ctx).Model(&app).Updates(updates).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}

	updated, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	metrics.CertificatesAssigned.Inc()
	log.Info().Uint("application_id", appID).Str("certificate_no", certNo).Msg("certificate number assigned")
	s.hubs.ApplicationChanged(ws.NewApplicationEvent(ws.EventCertificateAssigned, updated))
	return updated, nil
}

// ListByDepartments returns applications whose student belongs to any of the
// given departments. Group codes such as IT expand to their sub-departments.
func (s *ApplicationService) ListByDepartments(ctx context.Context, departments []string) ([]models.Application, error) {
	clean := cleanStrings(departments)
	if len(clean) == 0 {
		return nil, apperrors.Validation("Department list cannot be null or empty")
	}
	expanded := s.groups.Expand(clean)

	var apps []models.Application
	err := s.base(ctx).
		Scopes(s.inDepartments(expanded)).
		Order("applications.id").
		Find(&apps).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	log.Debug().Strs("departments", expanded).Int("count", len(apps)).Msg("listed applications by department")
	return apps, nil
}

// DepartmentsFor returns the student departments visible to a staff department.
func (s *ApplicationService) DepartmentsFor(staffDepartment string) []string {
	return s.groups.Expand([]string{staffDepartment})
}

func (s *ApplicationService) Get(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	if err := s.base(ctx).First(&app, id).Error; err != nil {
		return nil, apperrors.FromDB(err, "Application not found", "")
	}
	return &app, nil
}

func (s *ApplicationService) ListByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.base(ctx).
		Where("applications.student_id = ?", strings.TrimSpace(studentID)).
		Order("applications.application_date DESC, applications.id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return apps, nil
}

func (s *ApplicationService) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	var apps []models.Application
	err := s.base(ctx).
		Where("applications.status = ?", status).
		Order("applications.id").
		Find(&apps).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return apps, nil
}

// ListByCertificateRange compares certificate numbers byte-wise and includes both bounds.
// An empty bound is open.
func (s *ApplicationService) ListByCertificateRange(ctx context.Context, start, end string) ([]models.Application, error) {
	var apps []models.Application
	err := s.base(ctx).
		Scopes(s.certificateRange(start, end)).
		Order(s.certificateColumn()).
		Find(&apps).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return apps, nil
}

type ApplicationFilter struct {
	Status      *models.ApplicationStatus
	StudentID   string
	CertStart   string
	CertEnd     string
	Departments []string // already expanded student department codes
	Page
}

// List applies the filter and returns one page plus the total match count.
func (s *ApplicationService) List(ctx context.Context, f ApplicationFilter) ([]models.Application, int64, error) {
	scopes := s.filterScopes(f)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Application{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, apperrors.FromDB(err, "", "")
	}

	var apps []models.Application
	q := f.Page.apply(s.base(ctx).Scopes(scopes...), applicationSorts, "applications.id")
	if err := q.Find(&apps).Error; err != nil {
		return nil, 0, apperrors.FromDB(err, "", "")
	}
	return apps, total, nil
}

func (s *ApplicationService) filterScopes(f ApplicationFilter) []func(*gorm.DB) *gorm.DB {
	var scopes []func(*gorm.DB) *gorm.DB
	if f.Status != nil {
		status := *f.Status
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("applications.status = ?", status)
		})
	}
	if id := strings.TrimSpace(f.StudentID); id != "" {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("applications.student_id = ?", id)
		})
	}
	if f.CertStart != "" || f.CertEnd != "" {
		scopes = append(scopes, s.certificateRange(f.CertStart, f.CertEnd))
	}
	if f.Departments != nil {
		scopes = append(scopes, s.inDepartments(f.Departments))
	}
	return scopes
}

type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Stats counts applications by status. A nil departments slice counts everything.
func (s *ApplicationService) Stats(ctx context.Context, departments []string) (Stats, error) {
	type row struct {
		Status models.ApplicationStatus
		Count  int64
	}
	var rows []row
	q := s.db.WithContext(ctx).Model(&models.Application{})
	if departments != nil {
		q = q.Scopes(s.inDepartments(departments))
	}
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return Stats{}, apperrors.FromDB(err, "", "")
	}

	var st Stats
	for _, r := range rows {
		st.Total += r.Count
		switch r.Status {
		case models.StatusPending:
			st.Pending = r.Count
		case models.StatusApproved:
			st.Approved = r.Count
		case models.StatusRejected:
			st.Rejected = r.Count
		}
	}
	return st, nil
}

// base is the read query every lookup starts from; the owning student is always loaded.
func (s *ApplicationService) base(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Application{}).Preload("Student")
}

func (s *ApplicationService) inDepartments(departments []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(departments) == 0 {
			return db.Where("1 = 0")
		}
		owners := s.db.Model(&models.Student{}).Select("id").Where("department IN ?", departments)
		return db.Where("applications.student_id IN (?)", owners)
	}
}

// certificateColumn compares byte-wise regardless of the database locale.
func (s *ApplicationService) certificateColumn() string {
	col := "applications.current_certificate_no"
	if s.db.Dialector.Name() == "postgres" {
		col += ` COLLATE "C"`
	}
	return col
}

func (s *ApplicationService) certificateRange(start, end string) func(*gorm.DB) *gorm.DB {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	col := s.certificateColumn()
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("applications.current_certificate_no IS NOT NULL")
		if start != "" {
			db = db.Where(col+" >= ?", start)
		}
		if end != "" {
			db = db.Where(col+" <= ?", end)
		}
		return db
	}
}
