package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/railconcession/concession_backend/internal/config"
	"github.com/railconcession/concession_backend/internal/models"
)

// Connect opens the configured store. TranslateError makes duplicate keys
// surface as gorm.ErrDuplicatedKey on both drivers.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DBPath+"?_foreign_keys=on"), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer at a time.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Staff{},
		&models.Application{},
		&models.RevokedToken{},
	)
}
