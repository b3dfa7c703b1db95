package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/grovekit/grove/pkg/models"
)

// ConfigManager loads and validates engine configuration from the global
// .groveconfig file and per-project .groverc overrides.
type ConfigManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	LoadProjectConfig(checkoutPath string) (*models.ProjectConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigManager using Viper to read YAML
// configuration files relative to basePath.
type viperConfigManager struct {
	basePath string
}

// NewConfigManager creates a ConfigManager that reads configuration files
// from basePath.
func NewConfigManager(basePath string) ConfigManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig(basePath string) *models.GlobalConfig {
	return &models.GlobalConfig{
		RootDir:         filepath.Join(basePath, "checkouts"),
		DefaultBranch:   "main",
		Remotes:         map[string]string{},
		SyncInterval:    5 * time.Minute,
		SyncWorkers:     4,
		GitTimeout:      2 * time.Minute,
		BranchMaxLength: DefaultBranchMaxLength,
		IntakeDir:       filepath.Join(basePath, "workitems"),
		RetentionAge:    0,
	}
}

// LoadGlobalConfig reads .groveconfig from the base path. A missing file
// yields the defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig(cm.basePath)

	v := viper.New()
	v.SetConfigName(".groveconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("root_dir", cfg.RootDir)
	v.SetDefault("defaults.branch", cfg.DefaultBranch)
	v.SetDefault("sync.interval_seconds", int(cfg.SyncInterval.Seconds()))
	v.SetDefault("sync.workers", cfg.SyncWorkers)
	v.SetDefault("git.timeout_seconds", int(cfg.GitTimeout.Seconds()))
	v.SetDefault("branch.max_length", cfg.BranchMaxLength)
	v.SetDefault("intake.dir", cfg.IntakeDir)
	v.SetDefault("retention.hours", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .groveconfig: %w", err)
	}

	cfg.RootDir = v.GetString("root_dir")
	cfg.DefaultBranch = v.GetString("defaults.branch")
	cfg.SyncInterval = time.Duration(v.GetInt("sync.interval_seconds")) * time.Second
	cfg.SyncWorkers = v.GetInt("sync.workers")
	cfg.GitTimeout = time.Duration(v.GetInt("git.timeout_seconds")) * time.Second
	cfg.BranchMaxLength = v.GetInt("branch.max_length")
	cfg.IntakeDir = v.GetString("intake.dir")
	cfg.RetentionAge = time.Duration(v.GetInt("retention.hours")) * time.Hour
	cfg.Remotes = v.GetStringMapString("remotes")
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]string{}
	}

	return cfg, nil
}

// LoadProjectConfig reads a .groverc file from a project checkout. A missing
// file returns nil (no project-specific overrides).
func (cm *viperConfigManager) LoadProjectConfig(checkoutPath string) (*models.ProjectConfig, error) {
	v := viper.New()
	v.SetConfigName(".groverc")
	v.SetConfigType("yaml")
	v.AddConfigPath(checkoutPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("reading .groverc in %s: %w", checkoutPath, err)
	}

	return &models.ProjectConfig{
		DefaultBranch: v.GetString("default_branch"),
		RemoteURL:     v.GetString("remote_url"),
	}, nil
}

// ValidateConfig checks a GlobalConfig for invalid values and returns a
// message identifying every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.RootDir == "" {
		errs = append(errs, "root_dir must not be empty")
	}
	if cfg.DefaultBranch == "" {
		errs = append(errs, "defaults.branch must not be empty")
	}
	if cfg.SyncInterval <= 0 {
		errs = append(errs, fmt.Sprintf("sync.interval_seconds must be positive, got %s", cfg.SyncInterval))
	}
	if cfg.SyncWorkers <= 0 {
		errs = append(errs, fmt.Sprintf("sync.workers must be positive, got %d", cfg.SyncWorkers))
	}
	if cfg.GitTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("git.timeout_seconds must be positive, got %s", cfg.GitTimeout))
	}
	if cfg.BranchMaxLength <= 0 || cfg.BranchMaxLength > 200 {
		errs = append(errs, fmt.Sprintf("branch.max_length %d is invalid, must be between 1 and 200", cfg.BranchMaxLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
