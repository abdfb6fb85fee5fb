package logger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/console/internal/infrastructure/config"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "chatty", Format: "json"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
	l, err := New(config.LoggerConfig{Level: "debug", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = l.Close()
}

func TestLogRequest(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
		msg   string
	}{
		{"served", nil, zapcore.InfoLevel, "HTTP request"},
		{"failed", errors.New("boom"), zapcore.ErrorLevel, "HTTP request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := observed()
			l.LogRequest(Request{Method: "GET", URI: "/projects", Status: 200, Latency: 1500 * time.Microsecond, RequestID: "req-1", Err: tt.err})

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d entries", len(entries))
			}
			e := entries[0]
			if e.Level != tt.level || e.Message != tt.msg {
				t.Errorf("entry = %s %q, want %s %q", e.Level, e.Message, tt.level, tt.msg)
			}
			fields := e.ContextMap()
			if fields["request_id"] != "req-1" || fields["latency_ms"] != 1.5 {
				t.Errorf("fields = %v", fields)
			}
		})
	}
}

func TestWithRequestID(t *testing.T) {
	l, logs := observed()

	if l.WithRequestID("") != l {
		t.Error("an empty request id should not add a field")
	}
	l.WithComponent("tasks").WithRequestID("req-9").Infow("Task advanced")

	fields := logs.All()[0].ContextMap()
	if fields["request_id"] != "req-9" || fields["component"] != "tasks" {
		t.Errorf("fields = %v", fields)
	}
}

func TestLogBackendCall(t *testing.T) {
	l, logs := observed()
	l.LogBackendCall("GET", "/auth/me", 0, 2, errors.New("network error"))
	l.LogBackendCall("GET", "/projects", 200, 3, nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[1].Level != zapcore.DebugLevel {
		t.Errorf("levels = %s, %s", entries[0].Level, entries[1].Level)
	}
}
