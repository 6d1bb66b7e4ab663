package log

// LoggerConfig configures the package-level logger. Format defaults to
// "text"; "json" is used in containerized deployments. Filename, when set,
// routes output through a rotating file appender instead of stderr.
type LoggerConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Filename string `yaml:"filename,omitempty"`

	MaxSizeMB  int  `yaml:"maxsize,omitempty"`
	MaxAgeDays int  `yaml:"maxage,omitempty"`
	MaxBackups int  `yaml:"maxbackups,omitempty"`
	Compress   bool `yaml:"compress,omitempty"`
}
