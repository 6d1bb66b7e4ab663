// Package log provides the structured logger used across the daemon,
// pipeline runner, and reassembly engine. It wraps logrus the same way the
// upstream capture-agent lineage did: a narrow Logger interface so call
// sites never import logrus directly, with rotation handled by lumberjack
// when a file target is configured.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
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

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Trace(args ...interface{})                 { l.entry.Trace(args...) }
func (l *logrusLogger) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }
func (l *logrusLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logrusLogger) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }

func (l *logrusLogger) WithField(field string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(field, value)}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(fields)}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

func (l *logrusLogger) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

var (
	once   sync.Once
	logger Logger
	base   = logrus.New()
)

// GetLogger returns the process-wide logger. Init must be called first;
// until then it returns a default stderr/info logger so early startup code
// (before config is loaded) never dereferences nil.
func GetLogger() Logger {
	if logger == nil {
		return &logrusLogger{entry: logrus.NewEntry(base)}
	}
	return logger
}

// Init configures the package-level logger exactly once. Subsequent calls
// are no-ops; call Reconfigure to change level/format after a config reload.
func Init(cfg *LoggerConfig) {
	once.Do(func() {
		Reconfigure(cfg)
	})
}

// Reconfigure applies level/format/output changes without resetting the
// singleton identity, used by the daemon's SIGHUP reload path.
func Reconfigure(cfg *LoggerConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if cfg.Filename != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 100),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
			MaxBackups: defaultInt(cfg.MaxBackups, 3),
			Compress:   cfg.Compress,
		}
	}
	base.SetOutput(out)

	logger = &logrusLogger{entry: logrus.NewEntry(base)}
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}
