package log

const (
	DefaultPattern    = "%time [%level] %field %msg"
	DefaultTimeLayout = "2006-01-02 15:04:05"
)

type LoggerConfig struct {
	Level        string           `mapstructure:"level"`
	Pattern      string           `mapstructure:"pattern"`
	Time         string           `mapstructure:"time"`
	ReportCaller bool             `mapstructure:"report_caller"`
	File         *FileAppenderOpt `mapstructure:"file"`
}

// DefaultConfig logs info and above to stderr only.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:   "info",
		Pattern: DefaultPattern,
		Time:    DefaultTimeLayout,
	}
}
