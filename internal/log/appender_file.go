package log

import "gopkg.in/natefinch/lumberjack.v2"

const defaultMaxSizeMB = 10

type FileAppenderOpt struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AddFileAppender appends a size-rotated log file.
func (m *MultiWriter) AddFileAppender(options FileAppenderOpt) *MultiWriter {
	size := options.MaxSize
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	writer := &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    size,               // megabytes
		MaxBackups: options.MaxBackups, // files kept
		MaxAge:     options.MaxAge,     // days
		Compress:   options.Compress,
	}
	m.writers = append(m.writers, writer)
	m.closers = append(m.closers, writer)
	return m
}
