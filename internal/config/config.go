package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string         `yaml:"env" env:"OVERTIME_ENV" env-default:"local"`
	StoragePath string         `yaml:"storage_path" env:"OVERTIME_STORAGE_PATH" env-default:"overtime-agent.db"`
	Log         LogConfig      `yaml:"log"`
	Backend     BackendConfig  `yaml:"backend"`
	Cache       CacheConfig    `yaml:"cache"`
	Approval    ApprovalConfig `yaml:"approval"`
	History     HistoryConfig  `yaml:"history"`
	Server      ServerConfig   `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"OVERTIME_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"OVERTIME_LOG_FORMAT" env-default:"console"`
}

// BackendConfig describes the spreadsheet-backed API endpoint
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"OVERTIME_BACKEND_URL"`
	Timeout int           `yaml:"timeout" env:"OVERTIME_BACKEND_TIMEOUT" env-default:"30"` // seconds
	Actions ActionsConfig `yaml:"actions"`
}

// ActionsConfig holds the values sent in the "action" parameter, overridable per deployment
type ActionsConfig struct {
	GetEmployees     string `yaml:"get_employees" env:"OVERTIME_ACTION_GET_EMPLOYEES" env-default:"getEmployees"`
	GetShifts        string `yaml:"get_shifts" env:"OVERTIME_ACTION_GET_SHIFTS" env-default:"getShifts"`
	GetEngineers     string `yaml:"get_engineers" env:"OVERTIME_ACTION_GET_ENGINEERS" env-default:"getDutyEngineers"`
	GetPending       string `yaml:"get_pending" env:"OVERTIME_ACTION_GET_PENDING" env-default:"getPendingRecords"`
	SubmitAttendance string `yaml:"submit_attendance" env:"OVERTIME_ACTION_SUBMIT" env-default:"submitAttendance"`
	ConfirmRecords   string `yaml:"confirm_records" env:"OVERTIME_ACTION_CONFIRM" env-default:"confirmRecords"`
}

type CacheConfig struct {
	EmployeeTTL int `yaml:"employee_ttl" env:"OVERTIME_EMPLOYEE_TTL" env-default:"300"` // seconds
}

// ApprovalConfig is the day-of-month range in which pending records can be confirmed
type ApprovalConfig struct {
	StartDay int `yaml:"start_day" env:"OVERTIME_APPROVAL_START_DAY" env-default:"2"`
	EndDay   int `yaml:"end_day" env:"OVERTIME_APPROVAL_END_DAY" env-default:"7"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit" env:"OVERTIME_HISTORY_LIMIT" env-default:"5"`
}

type ServerConfig struct {
	Port int `yaml:"port" env:"OVERTIME_SERVER_PORT" env-default:"8484"`
}

// LoadConfig reads the YAML file at path (when present) and applies
// environment overrides. A .env file in the working directory is loaded first.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be > 0")
	}
	if c.Cache.EmployeeTTL < 0 {
		return fmt.Errorf("cache.employee_ttl must be >= 0")
	}
	if c.Approval.StartDay < 1 || c.Approval.EndDay > 31 || c.Approval.StartDay > c.Approval.EndDay {
		return fmt.Errorf("approval window must satisfy 1 <= start_day <= end_day <= 31")
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be > 0")
	}
	return nil
}
