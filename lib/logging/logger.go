package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

// Level defines the verbosity of a logger. Higher levels include all lower ones.
type Level int32

const (
	CRITICAL Level = iota + 1
	ERROR
	WARNING
	INFO
	DEBUG
)

// toHCLog converts a Level to the corresponding hclog level
func (l Level) toHCLog() hclog.Level {
	switch l {
	case DEBUG:
		return hclog.Debug
	case INFO:
		return hclog.Info
	case WARNING:
		return hclog.Warn
	case ERROR, CRITICAL:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// ParseLogLevel converts a string level to a Level
func ParseLogLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Interface
// --------------------------------------------------------------------------

// ILogger is the logging interface used by all subsystems of sVS.
type ILogger interface {
	SetLevel(level Level)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Implementation (backed by hashicorp/go-hclog)
// --------------------------------------------------------------------------

// svsLogger implements the ILogger interface on top of a named hclog logger
type svsLogger struct {
	name string
	hc   hclog.Logger
}

func (l *svsLogger) SetLevel(level Level) {
	l.hc.SetLevel(level.toHCLog())
}

func (l *svsLogger) Debugf(format string, args ...interface{}) {
	l.hc.Debug(fmt.Sprintf(format, args...))
}

func (l *svsLogger) Infof(format string, args ...interface{}) {
	l.hc.Info(fmt.Sprintf(format, args...))
}

func (l *svsLogger) Warningf(format string, args ...interface{}) {
	l.hc.Warn(fmt.Sprintf(format, args...))
}

func (l *svsLogger) Errorf(format string, args ...interface{}) {
	l.hc.Error(fmt.Sprintf(format, args...))
}

func (l *svsLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var (
	root = hclog.New(&hclog.LoggerOptions{
		Name:   "svs",
		Level:  hclog.Info,
		Output: os.Stdout,
	})
	loggers = xsync.NewMapOf[string, *svsLogger]()
)

// GetLogger returns the logger for the given subsystem, creating it on first
// use. Loggers are shared: repeated calls with the same name return the same
// instance.
//
// Thread-safety: safe for concurrent use.
func GetLogger(subsystem string) ILogger {
	l, _ := loggers.LoadOrCompute(subsystem, func() *svsLogger {
		return &svsLogger{
			name: subsystem,
			hc:   root.Named(subsystem),
		}
	})
	return l
}

// SetGlobalLogLevel sets the level of every existing logger and the default
// level for loggers created afterwards.
func SetGlobalLogLevel(level Level) {
	root.SetLevel(level.toHCLog())
	loggers.Range(func(_ string, l *svsLogger) bool {
		l.SetLevel(level)
		return true
	})
}
