// Package core contains the projitive business logic: status transitions,
// ledger lint rules, cross-project ranking, confidence scoring, task write
// paths and configuration.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// configNames are tried in order within each search path. The bare
// ".projitive" marker file is never read as configuration.
var configNames = []string{"projitive.yaml", "projitive.yml", ".projitive.yaml"}

// ConfigurationManager loads and validates projitive.yaml.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath   string
	configFile string
}

// NewConfigurationManager creates a ConfigurationManager that searches
// basePath and then $HOME/.config/projitive. A non-empty configFile is read
// directly instead and must exist.
func NewConfigurationManager(basePath, configFile string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath, configFile: configFile}
}

// DefaultConfig returns the built-in settings rooted at basePath.
func DefaultConfig(basePath string) *models.Config {
	return &models.Config{
		Scan: models.ScanConfig{
			Root:     basePath,
			MaxDepth: 3,
			Marker:   ".projitive",
			SkipDirs: []string{".git", "node_modules", "vendor", "dist", "build"},
		},
		Ledger: models.LedgerConfig{
			TasksFile:   "tasks.md",
			RoadmapFile: "roadmap.md",
		},
		Confidence: models.ConfidenceConfig{
			AutoCreateThreshold: DefaultThresholds().AutoCreate,
			ReviewThreshold:     DefaultThresholds().Review,
		},
		Log: models.LogConfig{Level: "info", Format: "text"},
	}
}

func (cm *viperConfigManager) newViper() *viper.Viper {
	d := DefaultConfig(cm.basePath)
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("scan.root", d.Scan.Root)
	v.SetDefault("scan.max_depth", d.Scan.MaxDepth)
	v.SetDefault("scan.marker", d.Scan.Marker)
	v.SetDefault("scan.skip_dirs", d.Scan.SkipDirs)
	v.SetDefault("ledger.tasks_file", d.Ledger.TasksFile)
	v.SetDefault("ledger.roadmap_file", d.Ledger.RoadmapFile)
	v.SetDefault("confidence.auto_create_threshold", d.Confidence.AutoCreateThreshold)
	v.SetDefault("confidence.review_threshold", d.Confidence.ReviewThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("events.path", d.Events.Path)
	return v
}

// LoadConfig reads the first configuration file found. If none exists the
// defaults are returned. Relative scan roots and event paths are resolved
// against the directory holding the file.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	v, err := cm.read()
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if used := v.ConfigFileUsed(); used != "" {
		dir := filepath.Dir(used)
		if v.InConfig("scan.root") && !filepath.IsAbs(cfg.Scan.Root) {
			cfg.Scan.Root = filepath.Join(dir, cfg.Scan.Root)
		}
		if v.InConfig("events.path") && cfg.Events.Path != "" && !filepath.IsAbs(cfg.Events.Path) {
			cfg.Events.Path = filepath.Join(dir, cfg.Events.Path)
		}
	}
	return cfg, nil
}

func (cm *viperConfigManager) read() (*viper.Viper, error) {
	if cm.configFile != "" {
		v := cm.newViper()
		v.SetConfigFile(cm.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", cm.configFile, err)
		}
		return v, nil
	}

	paths := []string{cm.basePath}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "projitive"))
	}

	// A nearer directory wins over a preferred file name.
	for _, p := range paths {
		for _, name := range configNames {
			path := filepath.Join(p, name)
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				continue
			}
			v := cm.newViper()
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			return v, nil
		}
	}
	// No config file found, defaults only.
	return cm.newViper(), nil
}

// ValidateConfig checks the configuration for invalid values and returns one
// error naming every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Scan.Root == "" {
		errs = append(errs, "scan.root must not be empty")
	}
	if cfg.Scan.MaxDepth < 0 {
		errs = append(errs, fmt.Sprintf("scan.max_depth must be non-negative, got %d", cfg.Scan.MaxDepth))
	}
	if cfg.Scan.Marker == "" || strings.ContainsRune(cfg.Scan.Marker, filepath.Separator) {
		errs = append(errs, fmt.Sprintf("scan.marker %q must be a plain file name", cfg.Scan.Marker))
	}
	if cfg.Ledger.TasksFile == "" {
		errs = append(errs, "ledger.tasks_file must not be empty")
	}

	auto, review := cfg.Confidence.AutoCreateThreshold, cfg.Confidence.ReviewThreshold
	if auto < 0 || auto > 1 {
		errs = append(errs, fmt.Sprintf("confidence.auto_create_threshold %v must be within [0, 1]", auto))
	}
	if review < 0 || review > 1 {
		errs = append(errs, fmt.Sprintf("confidence.review_threshold %v must be within [0, 1]", review))
	}
	if review > auto {
		errs = append(errs, fmt.Sprintf("confidence.review_threshold %v must not exceed auto_create_threshold %v", review, auto))
	}

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error, fatal", cfg.Log.Level))
	}

	switch cfg.Log.Format {
	case "", "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be one of: text, json, logfmt", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
