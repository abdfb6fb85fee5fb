package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8084/api" {
		t.Errorf("backend base url: got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.AuthTransport != TransportBearer {
		t.Errorf("auth transport: got %q", cfg.Backend.AuthTransport)
	}
	if cfg.Session.CookieName != "cni_session" {
		t.Errorf("session cookie: got %q", cfg.Session.CookieName)
	}
	if cfg.Session.MaxAge != 7*24*time.Hour {
		t.Errorf("session max age: got %v", cfg.Session.MaxAge)
	}
	if cfg.Notifications.PollInterval != 10*time.Second {
		t.Errorf("poll interval: got %v", cfg.Notifications.PollInterval)
	}
	if cfg.Cache.MeStaleTime != time.Minute {
		t.Errorf("me stale time: got %v", cfg.Cache.MeStaleTime)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.test/v2")
	t.Setenv("BACKEND_AUTH_TRANSPORT", "cookie")
	t.Setenv("NOTIFICATIONS_POLL_INTERVAL", "3s")
	t.Setenv("SERVER_PORT", "4100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.test/v2" {
		t.Errorf("base url: got %q", cfg.Backend.BaseURL)
	}
	if !cfg.Backend.UsesCookie() {
		t.Error("expected cookie transport")
	}
	if cfg.Notifications.PollInterval != 3*time.Second {
		t.Errorf("poll interval: got %v", cfg.Notifications.PollInterval)
	}
	if cfg.Server.Addr() != "0.0.0.0:4100" {
		t.Errorf("addr: got %q", cfg.Server.Addr())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"relative base url", map[string]string{"BACKEND_BASE_URL": "/api"}, "base url"},
		{"unknown transport", map[string]string{"BACKEND_AUTH_TRANSPORT": "header"}, "auth transport"},
		{"short secret in production", map[string]string{"APP_ENVIRONMENT": "production", "SESSION_SECRET": "short"}, "session secret"},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "server port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}
