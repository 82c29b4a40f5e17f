package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps the application logger.
type Logger struct {
	*logrus.Logger
}

// LogLevel represents log levels
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFormat represents log output formats
type LogFormat string

const (
	JSONFormat LogFormat = "json"
	TextFormat LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format LogFormat
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger from the environment.
func Init() {
	once.Do(func() {
		instance = NewLogger(configFromEnv())
	})
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
	}

	logger.SetLevel(getLogrusLevel(config.Level))
	logger.SetOutput(os.Stdout)

	if config.Format == JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

func configFromEnv() Config {
	config := Config{
		Level:  InfoLevel,
		Format: JSONFormat,
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = LogLevel(strings.ToLower(level))
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = LogFormat(strings.ToLower(format))
	}

	return config
}

func getLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Global logger functions

// Debug logs a debug message
func Debug(args ...interface{}) {
	if instance != nil {
		instance.Debug(args...)
	}
}

// Info logs an info message
func Info(args ...interface{}) {
	if instance != nil {
		instance.Info(args...)
	}
}

// Warn logs a warning message
func Warn(args ...interface{}) {
	if instance != nil {
		instance.Warn(args...)
	}
}

// Error logs an error message
func Error(args ...interface{}) {
	if instance != nil {
		instance.Error(args...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(args ...interface{}) {
	if instance != nil {
		instance.Fatal(args...)
	}
}

// WithField creates a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	if instance != nil {
		return instance.WithField(key, value)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithFields creates a logger with multiple fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	if instance != nil {
		return instance.WithFields(fields)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithError creates a logger with an error field
func WithError(err error) *logrus.Entry {
	if instance != nil {
		return instance.WithError(err)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Context-aware logging functions

// LogUserAction logs user actions
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := map[string]interface{}{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("User Action")
}

// LogChatEvent logs pairing and session events
func LogChatEvent(event, roomID, userID string, metadata map[string]interface{}) {
	fields := map[string]interface{}{
		"event":   event,
		"room_id": roomID,
		"user_id": userID,
		"type":    "chat_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Chat Event")
}

// LogConnectionEvent logs connection monitor transitions
func LogConnectionEvent(state string, retryCount int, errMsg string) {
	fields := map[string]interface{}{
		"state":       state,
		"retry_count": retryCount,
		"type":        "connection_event",
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}

	entry := WithFields(fields)
	if errMsg != "" {
		entry.Warn("Connection Event")
	} else {
		entry.Info("Connection Event")
	}
}

// LogError logs detailed error information
func LogError(err error, context string, metadata map[string]interface{}) {
	fields := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
		"type":    "error_detail",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Error("Application Error")
}
