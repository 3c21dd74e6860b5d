package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

// lineFormatter renders "time [LEVEL] message key=value ..." with fields sorted.
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString("newsdesk ")
	b.WriteString(entry.Time.Format("2006/01/02 15:04:05.000000"))
	b.WriteString(" [")
	b.WriteString(levelName(entry.Level))
	b.WriteString("] ")
	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Data[k]))
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("]")
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug.String()
	case logrus.InfoLevel:
		return LevelInfo.String()
	case logrus.WarnLevel:
		return LevelWarn.String()
	default:
		return LevelError.String()
	}
}

var (
	mu           sync.Mutex
	currentLevel = LevelOff
	logger       *logrus.Logger
	logFile      *os.File
)

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.newsdesk/newsdesk.log.
func Setup(level LogLevel, filePath ...string) error {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if level == LevelOff {
		logger = nil
		return nil
	}

	var logPath string
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	} else {
		home, _ := os.UserHomeDir()
		logPath = filepath.Join(home, ".newsdesk", "newsdesk.log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	logFile = f
	logger = newLogger(f, level)
	return nil
}

// SetupWriter logs to w instead of a file. Used by `search --verbose` and tests.
func SetupWriter(level LogLevel, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	currentLevel = level
	if level == LevelOff {
		logger = nil
		return
	}
	logger = newLogger(w, level)
}

func newLogger(w io.Writer, level LogLevel) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(level.logrusLevel())
	return l
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	if logger != nil && level != LevelOff {
		logger.SetLevel(level.logrusLevel())
	}
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

// Close closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger = nil
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

func active(level LogLevel) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if level < currentLevel || logger == nil {
		return nil
	}
	return logger
}

func emit(level LogLevel, fields logrus.Fields, format string, args ...any) {
	l := active(level)
	if l == nil {
		return
	}
	entry := logrus.NewEntry(l)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	switch level {
	case LevelDebug:
		entry.Debugf(format, args...)
	case LevelInfo:
		entry.Infof(format, args...)
	case LevelWarn:
		entry.Warnf(format, args...)
	default:
		entry.Errorf(format, args...)
	}
}

func Debugf(format string, args ...any) { emit(LevelDebug, nil, format, args...) }
func Infof(format string, args ...any)  { emit(LevelInfo, nil, format, args...) }
func Warnf(format string, args ...any)  { emit(LevelWarn, nil, format, args...) }
func Errorf(format string, args ...any) { emit(LevelError, nil, format, args...) }

// FieldLogger attaches key-value fields to every message.
type FieldLogger struct {
	fields logrus.Fields
}

// WithFields returns a new logger with the specified fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: logrus.Fields(fields)}
}

func (fl *FieldLogger) Debugf(format string, args ...any) { emit(LevelDebug, fl.fields, format, args...) }
func (fl *FieldLogger) Infof(format string, args ...any)  { emit(LevelInfo, fl.fields, format, args...) }
func (fl *FieldLogger) Warnf(format string, args ...any)  { emit(LevelWarn, fl.fields, format, args...) }
func (fl *FieldLogger) Errorf(format string, args ...any) { emit(LevelError, fl.fields, format, args...) }
