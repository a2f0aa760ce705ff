package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:    AppConfig{Env: "local"},
		Engine: EngineConfig{URL: "https://engine.example.com/bot/"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.App.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", c.App.Port)
	}
	if c.Voice.Language != "en-US" || c.Voice.Voice != "Polly.Joanna" {
		t.Fatalf("unexpected voice defaults: %+v", c.Voice)
	}
	if c.Voice.FallbackMessage == "" {
		t.Fatalf("expected fallback message default")
	}
	if c.Sessions.TTL != time.Hour || c.Sessions.MaxEntries != 10000 {
		t.Fatalf("unexpected session defaults: %+v", c.Sessions)
	}
	if c.Engine.Timeout != 10*time.Second {
		t.Fatalf("expected engine timeout default, got %s", c.Engine.Timeout)
	}
	if c.OutboundEnabled() || c.RedisEnabled() || c.PostgresEnabled() {
		t.Fatalf("expected optional integrations disabled")
	}
}

func TestValidate_RejectsNonHTTPEngineURL(t *testing.T) {
	c := validConfig()
	c.Engine.URL = "engine.example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for engine url without scheme")
	}
}

func TestValidate_TwilioAllOrNothing(t *testing.T) {
	c := validConfig()
	c.Twilio.AccountSID = "AC123"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for partial twilio config")
	}

	c = validConfig()
	c.Twilio = TwilioConfig{AccountSID: "AC123", AuthToken: "tok", OutboundNumber: "+15550000"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !c.OutboundEnabled() {
		t.Fatalf("expected outbound enabled")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "bridge"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	c.DB = DBConfig{Host: "localhost", User: "postgres", Password: "x", Name: "bridge"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.DB.Port != 5432 {
		t.Fatalf("expected default db port, got %d", c.DB.Port)
	}
}

func TestLoad_FallsBackToPORT(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "8081")
	t.Setenv("TENEO_ENGINE_URL", "https://engine.example.com/")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_OUTBOUND_NUMBER", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":8081" {
		t.Fatalf("expected :8081, got %q", c.HTTPAddr())
	}
}

func TestLoad_RejectsMalformedDurations(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("TENEO_ENGINE_URL", "https://engine.example.com/")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_OUTBOUND_NUMBER", "")

	for _, key := range []string{"SESSION_TTL", "ENGINE_TIMEOUT", "OUTBOUND_GUARD_TTL", "SESSION_CLEANUP_INTERVAL"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "1hr")
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for malformed %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("TENEO_ENGINE_URL", "https://engine.example.com/")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_OUTBOUND_NUMBER", "")
	t.Setenv("SESSION_TTL", "30m")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Sessions.TTL != 30*time.Minute {
		t.Fatalf("expected 30m session ttl, got %s", c.Sessions.TTL)
	}
}
