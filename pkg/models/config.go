package models

// ScanConfig controls how governance roots are discovered under a directory tree.
type ScanConfig struct {
	Root     string   `yaml:"root" mapstructure:"root"`
	MaxDepth int      `yaml:"max_depth" mapstructure:"max_depth"`
	Marker   string   `yaml:"marker" mapstructure:"marker"`
	SkipDirs []string `yaml:"skip_dirs,omitempty" mapstructure:"skip_dirs"`
}

// LedgerConfig names the files a governance directory owns.
type LedgerConfig struct {
	TasksFile   string `yaml:"tasks_file" mapstructure:"tasks_file"`
	RoadmapFile string `yaml:"roadmap_file" mapstructure:"roadmap_file"`
}

// ConfidenceConfig holds the score thresholds that gate automatic task creation.
type ConfidenceConfig struct {
	AutoCreateThreshold float64 `yaml:"auto_create_threshold" mapstructure:"auto_create_threshold"`
	ReviewThreshold     float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json or logfmt
}

// EventsConfig controls the JSONL event log. An empty Path disables it.
type EventsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Config holds all settings read from projitive.yaml via Viper.
type Config struct {
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
}
