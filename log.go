package gotap

import (
	"context"
	"io"

	rlog "github.com/sirupsen/logrus"
)

type contextKey string

// Context keys whose values, when present, are attached to every log entry
// emitted through WithContext.
const (
	JobIDKey contextKey = "LOG_JOB_ID"
	UserKey  contextKey = "LOG_USER"
)

var logKeys = [...]contextKey{JobIDKey, UserKey}

// TapLogger is the logging interface used throughout the library. It
// abstracts away the underlying logging mechanism so applications can plug
// in their own implementation.
type TapLogger interface {
	SetLogLevel(level string) error
	GetLogLevel() string
	SetOutput(output io.Writer)
	GetOutput() io.Writer
	WithContext(ctx context.Context) *rlog.Entry

	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type defaultLogger struct {
	inner *rlog.Logger
}

func (log *defaultLogger) SetLogLevel(level string) error {
	actualLevel, err := rlog.ParseLevel(level)
	if err != nil {
		return err
	}
	log.inner.SetLevel(actualLevel)
	return nil
}

func (log *defaultLogger) GetLogLevel() string {
	return log.inner.GetLevel().String()
}

func (log *defaultLogger) SetOutput(output io.Writer) {
	log.inner.SetOutput(output)
}

func (log *defaultLogger) GetOutput() io.Writer {
	return log.inner.Out
}

func (log *defaultLogger) WithContext(ctx context.Context) *rlog.Entry {
	fields := context2Fields(ctx)
	return log.inner.WithFields(*fields)
}

func (log *defaultLogger) Tracef(format string, args ...interface{}) {
	log.inner.Tracef(format, args...)
}

func (log *defaultLogger) Debugf(format string, args ...interface{}) {
	log.inner.Debugf(format, args...)
}

func (log *defaultLogger) Infof(format string, args ...interface{}) {
	log.inner.Infof(format, args...)
}

func (log *defaultLogger) Warnf(format string, args ...interface{}) {
	log.inner.Warnf(format, args...)
}

func (log *defaultLogger) Errorf(format string, args ...interface{}) {
	log.inner.Errorf(format, args...)
}

func (log *defaultLogger) Trace(args ...interface{}) {
	log.inner.Trace(args...)
}

func (log *defaultLogger) Debug(args ...interface{}) {
	log.inner.Debug(args...)
}

func (log *defaultLogger) Info(args ...interface{}) {
	log.inner.Info(args...)
}

func (log *defaultLogger) Warn(args ...interface{}) {
	log.inner.Warn(args...)
}

func (log *defaultLogger) Error(args ...interface{}) {
	log.inner.Error(args...)
}

// CreateDefaultLogger creates a logrus-backed TapLogger with the default
// configuration. Secrets are masked through the formatter.
func CreateDefaultLogger() TapLogger {
	inner := rlog.New()
	inner.SetFormatter(&maskingFormatter{inner: &rlog.TextFormatter{}})
	return &defaultLogger{inner: inner}
}

var logger = CreateDefaultLogger()

func init() {
	_ = logger.SetLogLevel("error")
}

// SetLogger replaces the package-level logger.
func SetLogger(inLogger TapLogger) {
	logger = inLogger
}

// GetLogger returns the package-level logger.
func GetLogger() TapLogger {
	return logger
}

// maskingFormatter scrubs credentials and session tokens from every
// rendered log line.
type maskingFormatter struct {
	inner rlog.Formatter
}

func (f *maskingFormatter) Format(entry *rlog.Entry) ([]byte, error) {
	entry.Message = maskSecrets(entry.Message)
	return f.inner.Format(entry)
}

func context2Fields(ctx context.Context) *rlog.Fields {
	fields := rlog.Fields{}
	if ctx == nil {
		return &fields
	}
	for _, key := range logKeys {
		if ctx.Value(key) != nil {
			fields[string(key)] = ctx.Value(key)
		}
	}
	return &fields
}
