package config_test

import (
	"testing"
	"time"

	"vitalrite-api/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DISPATCH_EVERY", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_HOST", "")

	c, err := config.FromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.StoreBackend != config.BackendPostgres || c.Port != "50051" || c.SMTPPort != 587 {
		t.Errorf("got %+v", c)
	}
	if c.DispatchEvery != 30*time.Second || c.Location != time.UTC {
		t.Errorf("dispatch %v, location %v", c.DispatchEvery, c.Location)
	}
	if c.MailEnabled() {
		t.Error("mail enabled without SMTP_HOST")
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no secret", map[string]string{"JWT_SECRET": ""}},
		{"bad backend", map[string]string{"STORE_BACKEND": "mysql"}},
		{"firestore without project", map[string]string{"STORE_BACKEND": "firestore", "FIRESTORE_PROJECT": ""}},
		{"bad port", map[string]string{"SMTP_PORT": "smtp"}},
		{"bad zone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"bad interval", map[string]string{"DISPATCH_EVERY": "often"}},
		{"tiny interval", map[string]string{"DISPATCH_EVERY": "10ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s")
			t.Setenv("STORE_BACKEND", "memory")
			t.Setenv("SMTP_PORT", "")
			t.Setenv("TIMEZONE", "UTC")
			t.Setenv("DISPATCH_EVERY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.FromEnv(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
