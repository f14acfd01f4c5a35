// Package log provides the process-wide structured logger backed by logrus.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger
)

// GetLogger returns the global logger. Before Init it returns a warn-level
// stderr logger so library code and tests can log without setup.
func GetLogger() Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.WarnLevel)
		l.SetFormatter(&formatter{pattern: DefaultPattern, time: DefaultTimeLayout})
		logger = &logrusAdapter{entry: logrus.NewEntry(l)}
	}
	return logger
}

// Init builds a logger from cfg writing its console output to console and
// installs it as the global logger.
func Init(cfg *LoggerConfig, console io.Writer) (Logger, error) {
	l, err := NewWithConsole(cfg, console)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

// Close releases the file appenders of the global logger. Console output is
// not closed.
func Close() error {
	mu.RLock()
	l := logger
	mu.RUnlock()
	a, ok := l.(*logrusAdapter)
	if !ok {
		return nil
	}
	if out, ok := a.entry.Logger.Out.(*MultiWriter); ok {
		return out.Close()
	}
	return nil
}
