package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

type Fields = logrus.Fields

// Options configures the process logger.
type Options struct {
	Level    string
	File     string
	NoColors bool
}

// Logger returns the process-wide logger, creating it with defaults on first use.
func Logger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(newFormatter(false))
		logger.SetOutput(os.Stderr)
		logger.SetReportCaller(true)
	})
	return logger
}

// Setup applies opts to the process logger. When File is set, log lines are
// also written to a rotating file.
func Setup(opts Options) (*logrus.Logger, error) {
	l := Logger()

	level := logrus.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}
	l.SetLevel(level)
	// Colour codes would end up in the log file.
	l.SetFormatter(newFormatter(opts.NoColors || opts.File != ""))

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l, nil
}

func newFormatter(noColors bool) *formatter.Formatter {
	return &formatter.Formatter{
		NoColors:        noColors,
		TimestampFormat: "02 Jan 06 - 15:04",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			if noColors {
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			}
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	}
}

func Debug(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs msg at error level and returns the trace ID attached
// to it. An execution_id field is reused as the trace ID when present.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}
	var traceID string
	if id, ok := fields["execution_id"].(string); ok && id != "" {
		traceID = id
	} else {
		traceID = uuid.NewString()
	}
	fields["trace_id"] = traceID
	Logger().WithFields(fields).Error(msg)
	return traceID
}
