package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/reports"
	"github.com/railconcession/concession_backend/internal/utils"
)

var studentSorts = map[string]string{
	"id":         "id",
	"name":       "name",
	"department": "department",
	"created_at": "created_at",
}

type StudentService struct {
	db *gorm.DB
}

func NewStudentService(db *gorm.DB) *StudentService {
	return &StudentService{db: db}
}

type RegisterStudentInput struct {
	ID         string
	Name       string
	DOB        string
	Email      string
	Password   string
	Category   string
	Department string
}

// Register creates a student account. A record created implicitly by an
// application submission can be claimed once, provided the date of birth matches.
func (s *StudentService) Register(ctx context.Context, in RegisterStudentInput) (*models.Student, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.ID == "" || in.Name == "" || in.Email == "" {
		return nil, apperrors.Validation("id, name and email are required")
	}
	dob, err := normalizeDate("dob", in.DOB)
	if err != nil {
		return nil, err
	}

	var pwHash *string
	if in.Password != "" {
		h, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		pwHash = &h
	}

	var student models.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureEmailFree(tx, in.Email, in.ID); err != nil {
			return err
		}

		err := tx.First(&student, "id = ?", in.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			student = models.Student{
				ID:         in.ID,
				Name:       in.Name,
				DOB:        dob,
				Email:      &in.Email,
				Password:   pwHash,
				Category:   strings.TrimSpace(in.Category),
				Department: strings.TrimSpace(in.Department),
			}
			return tx.Create(&student).Error
		case err != nil:
			return err
		}

		if student.Registered() {
			return apperrors.Conflict("Student ID already exists")
		}
		if student.DOB != dob {
			return apperrors.Conflict("Date of birth does not match the existing student record")
		}
		student.Name = in.Name
		student.Email = &in.Email
		student.Password = pwHash
		if c := strings.TrimSpace(in.Category); c != "" {
			student.Category = c
		}
		if d := strings.TrimSpace(in.Department); d != "" {
			student.Department = d
		}
		return tx.Save(&student).Error
	})
	if err != nil {
		return nil, apperrors.FromDB(err, "Student not found", "Email already registered")
	}
	log.Info().Str("student_id", student.ID).Msg("student registered")
	return &student, nil
}

func (s *StudentService) ensureEmailFree(tx *gorm.DB, email, ownerID string) error {
	var count int64
	if err := tx.Model(&models.Student{}).Where("email = ? AND id <> ?", email, ownerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Conflict("Email already registered")
	}
	return nil
}

func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, apperrors.FromDB(err, "Student not found", "")
	}
	return &student, nil
}

type StudentWithApplications struct {
	*models.Student
	Applications []models.Application `json:"applications"`
}

// GetWithApplications loads the student and, with a second explicit query, its applications.
func (s *StudentService) GetWithApplications(ctx context.Context, id string) (*StudentWithApplications, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apps := []models.Application{}
	err = s.db.WithContext(ctx).
		Where("student_id = ?", student.ID).
		Order("application_date DESC, id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return &StudentWithApplications{Student: student, Applications: apps}, nil
}

type StudentFilter struct {
	Department string
	Page
}

func (s *StudentService) List(ctx context.Context, f StudentFilter) ([]models.Student, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Student{})
	if d := strings.TrimSpace(f.Department); d != "" {
		q = q.Where("department = ?", d)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.FromDB(err, "", "")
	}
	var students []models.Student
	if err := f.Page.apply(q, studentSorts, "created_at").Find(&students).Error; err != nil {
		return nil, 0, apperrors.FromDB(err, "", "")
	}
	return students, total, nil
}

// Search matches query as a case-insensitive substring of name or email.
func (s *StudentService) Search(ctx context.Context, query string) ([]models.Student, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("query is required")
	}
	like := likePattern(query)
	var students []models.Student
	err := s.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, like, like).
		Order("name").
		Find(&students).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return students, nil
}

type UpdateStudentInput struct {
	Name       *string
	Email      *string
	Category   *string
	Department *string
}

func (s *StudentService) Update(ctx context.Context, id string, in UpdateStudentInput) (*models.Student, error) {
	var student models.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&student, "id = ?", strings.TrimSpace(id)).Error; err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.Validation("name must not be empty")
			}
			student.Name = name
		}
		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if email == "" {
				return apperrors.Validation("email must not be empty")
			}
			if err := s.ensureEmailFree(tx, email, student.ID); err != nil {
				return err
			}
			student.Email = &email
		}
		if in.Category != nil {
			student.Category = strings.TrimSpace(*in.Category)
		}
		if in.Department != nil {
			student.Department = strings.TrimSpace(*in.Department)
		}
		return tx.Save(&student).Error
	})
	if err != nil {
		return nil, apperrors.FromDB(err, "Student not found", "Email already registered")
	}
	return &student, nil
}

// Delete removes a student who has no applications. Applications are never
// deleted, so a student who applied cannot be removed.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	return apperrors.FromDB(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student models.Student
		if err := tx.First(&student, "id = ?", id).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Application{}).Where("student_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.Conflict("Student has applications and cannot be deleted")
		}
		return tx.Delete(&student).Error
	}), "Student not found", "")
}

type ImportResult struct {
	Total    int                `json:"total_rows"`
	Inserted int                `json:"inserted"`
	Failed   int                `json:"failed"`
	Errors   []reports.RowError `json:"errors"`
}

// Import creates one student per roster row. Rows are independent: a bad or
// duplicate row is reported and the rest are still inserted.
func (s *StudentService) Import(ctx context.Context, rows []reports.RosterRow, readErrors []reports.RowError) ImportResult {
	res := ImportResult{
		Total:  len(rows) + len(readErrors),
		Errors: append([]reports.RowError{}, readErrors...),
	}
	fail := func(row reports.RosterRow, msg string) {
		res.Errors = append(res.Errors, reports.RowError{Line: row.Line, ID: row.ID, Error: msg})
	}

	for _, row := range rows {
		if row.ID == "" || row.Name == "" {
			fail(row, "id and name are required")
			continue
		}
		dob, err := normalizeDate("dob", row.DOB)
		if err != nil {
			fail(row, apperrors.Message(err))
			continue
		}
		student := models.Student{
			ID:         row.ID,
			Name:       row.Name,
			DOB:        dob,
			Category:   row.Category,
			Department: row.Department,
		}
		if row.Email != "" {
			email := row.Email
			student.Email = &email
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Student{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperrors.Conflict("Student ID already exists")
			}
			if student.Email != nil {
				if err := s.ensureEmailFree(tx, *student.Email, row.ID); err != nil {
					return err
				}
			}
			return tx.Create(&student).Error
		})
		if err != nil {
			err = apperrors.FromDB(err, "", "Student ID already exists")
			if msg := apperrors.Message(err); msg != "" {
				fail(row, msg)
			} else {
				fail(row, "failed to insert student")
				log.Error().Err(err).Str("student_id", row.ID).Msg("roster import insert failed")
			}
			continue
		}
		res.Inserted++
	}
	res.Failed = len(res.Errors)
	log.Info().Int("total", res.Total).Int("inserted", res.Inserted).Int("failed", res.Failed).Msg("student roster imported")
	return res
}
