package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/utils"
)

type StaffService struct {
	db *gorm.DB
}

func NewStaffService(db *gorm.DB) *StaffService {
	return &StaffService{db: db}
}

type CreateStaffInput struct {
	Name       string
	Email      string
	Password   string
	Department string
}

func (s *StaffService) Create(ctx context.Context, in CreateStaffInput) (*models.Staff, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.ToUpper(strings.TrimSpace(in.Department))
	switch {
	case in.Name == "":
		return nil, apperrors.Validation("name is required")
	case in.Email == "":
		return nil, apperrors.Validation("email is required")
	case in.Password == "":
		return nil, apperrors.Validation("password is required")
	case in.Department == "":
		return nil, apperrors.Validation("Department is required")
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	staff := models.Staff{
		Name:       in.Name,
		Email:      in.Email,
		Password:   hashed,
		Department: in.Department,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureEmailFree(tx, in.Email, 0); err != nil {
			return err
		}
		return tx.Create(&staff).Error
	})
	if err != nil {
		return nil, apperrors.FromDB(err, "", "Email already registered")
	}
	log.Info().Uint("staff_id", staff.ID).Str("department", staff.Department).Msg("staff created")
	return &staff, nil
}

func (s *StaffService) ensureEmailFree(tx *gorm.DB, email string, ownerID uint) error {
	var count int64
	if err := tx.Model(&models.Staff{}).Where("email = ? AND id <> ?", email, ownerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Conflict("Email already registered")
	}
	return nil
}

func (s *StaffService) Get(ctx context.Context, id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := s.db.WithContext(ctx).First(&staff, id).Error; err != nil {
		return nil, apperrors.FromDB(err, "Staff not found", "")
	}
	return &staff, nil
}

func (s *StaffService) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var staff models.Staff
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&staff).Error; err != nil {
		return nil, apperrors.FromDB(err, "Staff not found", "")
	}
	return &staff, nil
}

func (s *StaffService) List(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	if err := s.db.WithContext(ctx).Order("id").Find(&staff).Error; err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return staff, nil
}

type UpdateStaffInput struct {
	Name       *string
	Email      *string
	Password   *string
	Department *string
}

// Update changes only the provided fields. An empty password leaves the current one in place.
func (s *StaffService) Update(ctx context.Context, id uint, in UpdateStaffInput) (*models.Staff, error) {
	var staff models.Staff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&staff, id).Error; err != nil {
			return err
		}
		if in.Name != nil {
			if name := strings.TrimSpace(*in.Name); name != "" {
				staff.Name = name
			}
		}
		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if email != "" && email != staff.Email {
				if err := s.ensureEmailFree(tx, email, staff.ID); err != nil {
					if errors.Is(err, apperrors.ErrConflict) {
						return apperrors.Conflict("Email already in use")
					}
					return err
				}
				staff.Email = email
			}
		}
		if in.Password != nil && *in.Password != "" {
			hashed, err := utils.HashPassword(*in.Password)
			if err != nil {
				return err
			}
			staff.Password = hashed
		}
		if in.Department != nil {
			if dept := strings.ToUpper(strings.TrimSpace(*in.Department)); dept != "" {
				staff.Department = dept
			}
		}
		return tx.Save(&staff).Error
	})
	if err != nil {
		return nil, apperrors.FromDB(err, "Staff not found", "Email already in use")
	}
	return &staff, nil
}

func (s *StaffService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Staff{}, id)
	if res.Error != nil {
		return apperrors.FromDB(res.Error, "Staff not found", "")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Staff not found")
	}
	log.Info().Uint("staff_id", id).Msg("staff deleted")
	return nil
}
