package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig    `mapstructure:"app"`
	DataDir string       `mapstructure:"data_dir"`
	Slots   []SlotConfig `mapstructure:"slots"`
	Backup  BackupConfig `mapstructure:"backup"`
	Safety  SafetyConfig `mapstructure:"safety"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// SlotConfig declares one database slot and its scheduled backup cadence.
type SlotConfig struct {
	Type     string `mapstructure:"type"`
	Path     string `mapstructure:"path"`
	Schedule string `mapstructure:"schedule"`
	Enabled  bool   `mapstructure:"enabled"`
}

type BackupConfig struct {
	RetentionDays   int             `mapstructure:"retention_days"`
	CompressOffsite bool            `mapstructure:"compress_offsite"`
	OffsiteTargets  []OffsiteTarget `mapstructure:"offsite_targets"`
}

type OffsiteTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

type SafetyConfig struct {
	StateFile   string        `mapstructure:"state_file"`
	StateMaxAge time.Duration `mapstructure:"state_max_age"`

	LockRetryAttempts       int           `mapstructure:"lock_retry_attempts"`
	LockRetryInitialBackoff time.Duration `mapstructure:"lock_retry_initial_backoff"`
	LockRetryMaxBackoff     time.Duration `mapstructure:"lock_retry_max_backoff"`
	LockRetryDeadline       time.Duration `mapstructure:"lock_retry_deadline"`

	MoveThresholdMB int64 `mapstructure:"move_threshold_mb"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "dbswap")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("backup.retention_days", 7)
	v.SetDefault("backup.compress_offsite", true)
	v.SetDefault("safety.state_max_age", "2m")
	v.SetDefault("safety.lock_retry_attempts", 10)
	v.SetDefault("safety.lock_retry_initial_backoff", "100ms")
	v.SetDefault("safety.lock_retry_max_backoff", "2s")
	v.SetDefault("safety.lock_retry_deadline", "30s")
	v.SetDefault("safety.move_threshold_mb", 8)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if !filepath.IsAbs(c.DataDir) {
		return fmt.Errorf("data_dir must be an absolute path")
	}

	for i, slot := range c.Slots {
		if slot.Type == "" {
			return fmt.Errorf("slots[%d]: type is required", i)
		}
		if slot.Enabled && slot.Schedule == "" {
			return fmt.Errorf("slots[%d]: schedule is required when enabled", i)
		}
	}

	if c.Backup.RetentionDays <= 0 {
		return fmt.Errorf("backup.retention_days must be positive")
	}

	return nil
}

func (c *Config) GetEnabledSlots() []SlotConfig {
	var enabled []SlotConfig
	for _, slot := range c.Slots {
		if slot.Enabled {
			enabled = append(enabled, slot)
		}
	}
	return enabled
}

func (c *Config) GetEnabledOffsiteTargets() []OffsiteTarget {
	var enabled []OffsiteTarget
	for _, target := range c.Backup.OffsiteTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
