// Package logging provides the kernel's structured logger: a thin wrapper
// around logrus that carries per-request correlation fields through
// context.Context so every log line emitted during one operation can be
// reconstructed later by operation id.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys this package defines.
type ContextKey string

const (
	// OperationIDKey is the context key for the request/operation correlation id.
	OperationIDKey ContextKey = "operation_id"
	// SubjectKey is the context key for the authenticated subject.
	SubjectKey ContextKey = "subject"
	// SourceKey is the context key for the credential source (api_key/session/jwt).
	SourceKey ContextKey = "source"
)

// Logger wraps logrus.Logger with kernel-specific correlation helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance for the named component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{
		Logger:    logger,
		component: component,
	}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT. Defaults to
// "info" and "json" when unset.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithContext creates a logger entry carrying correlation fields from ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if opID := ctx.Value(OperationIDKey); opID != nil {
		entry = entry.WithField("operation_id", opID)
	}
	if subject := ctx.Value(SubjectKey); subject != nil {
		entry = entry.WithField("subject", subject)
	}
	if source := ctx.Value(SourceKey); source != nil {
		entry = entry.WithField("source", source)
	}

	return entry
}

// WithOperationID creates a logger entry for a fixed operation id.
func (l *Logger) WithOperationID(operationID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component":    l.component,
		"operation_id": operationID,
	})
}

// WithFields creates a logger entry with custom fields plus the component tag.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError creates a logger entry carrying err.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err.Error(),
	})
}

// SetOutput redirects the logger's output, mainly for tests.
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// Context helpers

// NewOperationID generates a fresh operation id.
func NewOperationID() string {
	return uuid.New().String()
}

// WithOperationID attaches an operation id to ctx.
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, OperationIDKey, operationID)
}

// GetOperationID retrieves the operation id from ctx, or "" if absent.
func GetOperationID(ctx context.Context) string {
	if operationID, ok := ctx.Value(OperationIDKey).(string); ok {
		return operationID
	}
	return ""
}

// WithSubject attaches the authenticated subject to ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject retrieves the authenticated subject from ctx.
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(SubjectKey).(string); ok {
		return subject
	}
	return ""
}

// WithSource attaches the credential source to ctx.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the credential source from ctx.
func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

// Structured logging helpers

// LogRequest logs an HTTP request/response pair.
func (l *Logger) LogRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}).Info("http request")
}

// LogStorageOp logs a storage adapter operation.
func (l *Logger) LogStorageOp(ctx context.Context, op, namespace string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"op":          op,
		"namespace":   namespace,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("storage operation failed")
	} else {
		entry.Debug("storage operation executed")
	}
}

// LogServiceCall logs a ServiceRegistry dispatch.
func (l *Logger) LogServiceCall(ctx context.Context, service string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"service":     service,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("service call failed")
	} else {
		entry.Info("service call succeeded")
	}
}

// LogPluginLifecycle logs a plugin lifecycle transition.
func (l *Logger) LogPluginLifecycle(ctx context.Context, plugin, hook string, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"plugin": plugin,
		"hook":   hook,
	})
	if err != nil {
		entry.WithError(err).Error("plugin lifecycle hook failed")
	} else {
		entry.Debug("plugin lifecycle hook completed")
	}
}

// LogSecurityEvent logs an auth-boundary security event.
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType string, details map[string]interface{}) {
	fields := logrus.Fields{
		"event_type": eventType,
		"severity":   "security",
	}
	for k, v := range details {
		fields[k] = v
	}
	l.WithContext(ctx).WithFields(fields).Warn("security event")
}

// LogAudit logs an audit-trail event.
func (l *Logger) LogAudit(ctx context.Context, action, subject string, success bool, details map[string]interface{}) {
	fields := logrus.Fields{
		"action":  action,
		"subject": subject,
		"success": success,
		"audit":   true,
	}
	for k, v := range details {
		fields[k] = v
	}
	l.WithContext(ctx).WithFields(fields).Info("audit event")
}

// LogPerformance logs arbitrary performance metrics.
func (l *Logger) LogPerformance(ctx context.Context, operation string, metrics map[string]interface{}) {
	fields := logrus.Fields{
		"operation": operation,
		"type":      "performance",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	l.WithContext(ctx).WithFields(fields).Info("performance metrics")
}

// LogErrorWithStack logs an error with additional diagnostic fields.
func (l *Logger) LogErrorWithStack(ctx context.Context, err error, message string, fields map[string]interface{}) {
	logFields := logrus.Fields{
		"error": err.Error(),
	}
	for k, v := range fields {
		logFields[k] = v
	}
	l.WithContext(ctx).WithFields(logFields).Error(message)
}

// Fatal logs a fatal error and exits.
func (l *Logger) Fatal(ctx context.Context, message string, err error) {
	l.WithContext(ctx).WithError(err).Fatal(message)
}

// Debug logs a debug message.
func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Debug(message)
}

// Info logs an info message.
func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Info(message)
}

// Warn logs a warning message.
func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Warn(message)
}

// Error logs an error message.
func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.WithFields(fields).Error(message)
}

// Global default logger, initialized once at startup.
var defaultLogger *Logger

// InitDefault initializes the package-level default logger.
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the package-level default logger, creating a fallback if
// InitDefault was never called.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("kernel", "info", "json")
	}
	return defaultLogger
}

// FormatDuration renders a duration as milliseconds with two decimal places.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
