package database

import (
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/railconcession/concession_backend/internal/config"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/utils"
)

// SeedStaff creates the first staff account when the staff table is empty.
func SeedStaff(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.Staff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		email = "admin@example.com"
	}
	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
	}
	department := strings.ToUpper(strings.TrimSpace(cfg.AdminDepartment))
	if department == "" {
		department = "IT"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	staff := models.Staff{
		Name:       name,
		Email:      email,
		Password:   hashed,
		Department: department,
	}
	if err := db.Create(&staff).Error; err != nil {
		return err
	}
	log.Info().Str("email", email).Str("department", department).Msg("seeded initial staff account")
	return nil
}
