package domain

// Config mirrors ~/.parley/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version"`
	User                UserSettings    `yaml:"user"`
	Storage             StorageSettings `yaml:"storage"`
	Patterns            PatternSettings `yaml:"patterns"`
	Logging             LoggingSettings `yaml:"logging"`
}

// UserSettings captures user-level defaults.
type UserSettings struct {
	DefaultUserID string `yaml:"default_user_id"`
}

// StorageSettings configures the durable memory store.
type StorageSettings struct {
	// Path is the sqlite database location.
	Path string `yaml:"path"`
	// KeyEnvVar names an environment variable holding the encryption key.
	KeyEnvVar string `yaml:"key_env_var"`
	// KeyFile is the fallback key location, created on first use.
	KeyFile string `yaml:"key_file"`
}

// PatternSettings optionally overrides the built-in intent pattern table.
type PatternSettings struct {
	File string `yaml:"file,omitempty"`
}

// LoggingSettings controls log output.
type LoggingSettings struct {
	Verbose bool `yaml:"verbose"`
}
