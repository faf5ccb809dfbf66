package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver   string // postgres | sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string // sqlite only

	JWTSecret    string
	JWTExpiresIn string // minutes

	// First staff account, created when the staff table is empty.
	AdminName       string
	AdminEmail      string
	AdminPassword   string
	AdminDepartment string

	UploadDir   string
	MaxUploadMB int64

	LogLevel  string
	LogPretty bool

	ConfigFile       string
	DepartmentGroups DepartmentGroups
}

// fileConfig is the optional YAML overlay. Empty values leave the env value in place.
type fileConfig struct {
	Server struct {
		Port    string `yaml:"port"`
		GinMode string `yaml:"gin_mode"`
	} `yaml:"server"`
	Upload struct {
		Dir   string `yaml:"dir"`
		MaxMB int64  `yaml:"max_mb"`
	} `yaml:"upload"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"logging"`
	DepartmentGroups map[string][]string `yaml:"department_groups"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		GinMode:         getenv("GIN_MODE", "release"),
		DBDriver:        strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "5432"),
		DBUser:          getenv("DB_USER", "postgres"),
		DBPassword:      getenv("DB_PASSWORD", "postgres"),
		DBName:          getenv("DB_NAME", "concession_db"),
		DBSSLMode:       getenv("DB_SSLMODE", "disable"),
		DBPath:          getenv("DB_PATH", "concession.db"),
		JWTSecret:       getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn:    getenv("JWT_EXPIRES_IN", "60"),
		AdminName:       getenv("ADMIN_NAME", "Administrator"),
		AdminEmail:      getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin123"),
		AdminDepartment: getenv("ADMIN_DEPARTMENT", "IT"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		MaxUploadMB:     getenvInt("MAX_UPLOAD_MB", 5),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogPretty:       getenvBool("LOG_PRETTY", false),
		ConfigFile:      getenv("CONFIG_FILE", "config.yaml"),
	}

	groups := DefaultDepartmentGroups()
	if fc, err := readFile(cfg.ConfigFile); err != nil {
		return nil, err
	} else if fc != nil {
		cfg.applyFile(fc)
		if len(fc.DepartmentGroups) > 0 {
			groups = NewDepartmentGroups(fc.DepartmentGroups)
		}
	}
	cfg.DepartmentGroups = groups

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) applyFile(fc *fileConfig) {
	if fc.Server.Port != "" {
		c.Port = fc.Server.Port
	}
	if fc.Server.GinMode != "" {
		c.GinMode = fc.Server.GinMode
	}
	if fc.Upload.Dir != "" {
		c.UploadDir = fc.Upload.Dir
	}
	if fc.Upload.MaxMB > 0 {
		c.MaxUploadMB = fc.Upload.MaxMB
	}
	if fc.Logging.Level != "" {
		c.LogLevel = fc.Logging.Level
	}
	if fc.Logging.Pretty != nil {
		c.LogPretty = *fc.Logging.Pretty
	}
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.UploadDir == "" {
		return errors.New("UPLOAD_DIR is required")
	}
	return nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// AccessTTL falls back to one hour when JWT_EXPIRES_IN is not a positive number of minutes.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTExpiresIn + "m")
	if err != nil || d <= 0 {
		return 60 * time.Minute
	}
	return d
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
