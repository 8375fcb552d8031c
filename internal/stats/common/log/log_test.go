package log

import (
	"testing"
)

type testLogger struct {
	entries []string
}

func (l *testLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLogger) Panic(_ map[string]any, msg string) {}
func (l *testLogger) Fatal(_ map[string]any, msg string) {}

func TestActualZapLogger(t *testing.T) {
	Debug(map[string]any{
		"provider": "espn",
		"attempt":  2,
		"cached":   true,
	}, "test debug")
	Info(nil, "test info")
	Warn(nil, "test warn")
	Error(nil, "test error")

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic, but none occurred")
		}
	}()
	Panic(nil, "test panic")
	// Fatal would stop the test binary, so it is not exercised here.
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	expected := []string{
		"INFO:info msg",
		"ERROR:error msg",
		"DEBUG:debug msg",
		"WARN:warn msg",
	}

	if len(tlog.entries) != len(expected) {
		t.Fatalf("expected %d log entries, got %d", len(expected), len(tlog.entries))
	}
	for i, msg := range expected {
		if tlog.entries[i] != msg {
			t.Errorf("expected log[%d] = %q, got %q", i, msg, tlog.entries[i])
		}
	}
}

func TestConfigure_ValidLevels(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := Configure("prod", level); err != nil {
			t.Errorf("Configure(prod, %q) returned error: %v", level, err)
		}
		if err := Configure("dev", level); err != nil {
			t.Errorf("Configure(dev, %q) returned error: %v", level, err)
		}
	}
}

func TestConfigure_InvalidLevel(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	if err := Configure("prod", "verbose"); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestNoopLogger(t *testing.T) {
	n := NewNoopLogger()
	// Must not panic or emit anything.
	n.Info(nil, "ignored")
	n.Error(nil, "ignored")
	n.Debug(nil, "ignored")
	n.Warn(nil, "ignored")
	n.Panic(nil, "ignored")
	n.Fatal(nil, "ignored")
}
