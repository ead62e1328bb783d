package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	l := Logger()
	var buf bytes.Buffer
	prevOut, prevLevel := l.Out, l.GetLevel()
	l.SetOutput(&buf)
	t.Cleanup(func() {
		l.SetOutput(prevOut)
		l.SetLevel(prevLevel)
	})
	return &buf
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(Options{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrnode.log")
	l, err := Setup(Options{Level: "debug", File: path, NoColors: true})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() {
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.InfoLevel)
	})
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", l.GetLevel())
	}
	Debug(Fields{"node": "QRCode"}, "file sink check")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "file sink check") {
		t.Fatalf("log file missing message: %q", data)
	}
}

func TestWarnIncludesFields(t *testing.T) {
	buf := captureOutput(t)
	Warn(Fields{"discarded": 1}, "surplus outputs")
	out := buf.String()
	if !strings.Contains(out, "surplus outputs") || !strings.Contains(out, "discarded:1") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestErrorWithTraceIDReusesExecutionID(t *testing.T) {
	captureOutput(t)
	if got := ErrorWithTraceID(Fields{"execution_id": "abc"}, "boom"); got != "abc" {
		t.Fatalf("expected execution id as trace id, got %q", got)
	}
	if got := ErrorWithTraceID(nil, "boom"); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestSetupKeepsColourCodesOutOfLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrnode.log")
	l, err := Setup(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() {
		l.SetOutput(os.Stderr)
		l.SetFormatter(newFormatter(false))
	})
	Info(Fields{"node": "QRCode"}, "plain file line")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "plain file line") {
		t.Fatalf("log file missing message: %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Fatalf("log file contains colour codes: %q", data)
	}
}
