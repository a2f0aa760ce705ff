package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the bridge process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	Engine   EngineConfig
	Voice    VoiceConfig
	Sessions SessionConfig
	Twilio   TwilioConfig
	Outbound OutboundConfig
	Redis    RedisConfig
	DB       DBConfig
	Dispatch DispatchAuthConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the externally reachable scheme+host used to build
	// outbound redirect targets. Empty means "http://<request Host>".
	PublicBaseURL string
}

type EngineConfig struct {
	URL     string
	Timeout time.Duration
}

type VoiceConfig struct {
	// Language is the speech recognition language tag (Gather/Say language).
	Language string
	// Voice is the speech synthesis voice identifier.
	Voice string
	// FallbackMessage is spoken before hanging up when the engine is unreachable.
	FallbackMessage string
}

type SessionConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	OutboundNumber string
}

type OutboundConfig struct {
	// GuardTTL bounds how long a destination stays locked after a dispatch.
	GuardTTL time.Duration
}

// RedisConfig is optional; an empty Host disables the outbound guard.
type RedisConfig struct {
	Host string
	Port int
}

// DBConfig is optional; an empty Host keeps the turn journal in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// DispatchAuthConfig is optional; an empty secret leaves the outbound trigger open.
type DispatchAuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

const (
	defaultPort            = 3000
	defaultLanguage        = "en-US"
	defaultVoice           = "Polly.Joanna"
	defaultFallbackMessage = "Sorry, something went wrong. Please call again later."
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error
	duration := func(key string) time.Duration {
		d, err := optionalDuration(key)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return d
	}

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		key := "APP_PORT"
		if strings.TrimSpace(os.Getenv(key)) == "" {
			key = "PORT"
		}
		n, err := optionalInt(key)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.Engine.URL = strings.TrimSpace(os.Getenv("TENEO_ENGINE_URL"))
	c.Engine.Timeout = duration("ENGINE_TIMEOUT")

	c.Voice.Language = strings.TrimSpace(os.Getenv("LANGUAGE_STT"))
	c.Voice.Voice = strings.TrimSpace(os.Getenv("LANGUAGE_TTS"))
	c.Voice.FallbackMessage = strings.TrimSpace(os.Getenv("FALLBACK_MESSAGE"))

	c.Sessions.TTL = duration("SESSION_TTL")
	c.Sessions.CleanupInterval = duration("SESSION_CLEANUP_INTERVAL")
	{
		n, err := optionalInt("SESSION_MAX_ENTRIES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Sessions.MaxEntries = n
	}

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.OutboundNumber = strings.TrimSpace(os.Getenv("TWILIO_OUTBOUND_NUMBER"))

	c.Outbound.GuardTTL = duration("OUTBOUND_GUARD_TTL")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Dispatch.JWTSecret = os.Getenv("DISPATCH_JWT_SECRET")
	c.Dispatch.JWTIssuer = strings.TrimSpace(os.Getenv("DISPATCH_JWT_ISSUER"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port == 0 {
		c.App.Port = defaultPort
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL != "" && !isHTTPURL(c.App.PublicBaseURL) {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an http(s) URL, got %q", c.App.PublicBaseURL))
	}

	if c.Engine.URL == "" {
		errs = append(errs, errors.New("TENEO_ENGINE_URL is required"))
	} else if !isHTTPURL(c.Engine.URL) {
		errs = append(errs, fmt.Errorf("TENEO_ENGINE_URL must be an http(s) URL, got %q", c.Engine.URL))
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = 10 * time.Second
	}

	if c.Voice.Language == "" {
		c.Voice.Language = defaultLanguage
	}
	if c.Voice.Voice == "" {
		c.Voice.Voice = defaultVoice
	}
	if c.Voice.FallbackMessage == "" {
		c.Voice.FallbackMessage = defaultFallbackMessage
	}

	if c.Sessions.TTL <= 0 {
		// Comfortably longer than a typical IVR call.
		c.Sessions.TTL = time.Hour
	}
	if c.Sessions.CleanupInterval <= 0 {
		c.Sessions.CleanupInterval = 5 * time.Minute
	}
	if c.Sessions.MaxEntries == 0 {
		c.Sessions.MaxEntries = 10000
	}
	if c.Sessions.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_ENTRIES must be positive, got %d", c.Sessions.MaxEntries))
	}

	// Twilio credentials are only needed for outbound dispatch; all or none.
	if c.Twilio.AccountSID != "" || c.Twilio.AuthToken != "" || c.Twilio.OutboundNumber != "" {
		if c.Twilio.AccountSID == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required when outbound calling is configured"))
		}
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required when outbound calling is configured"))
		}
		if c.Twilio.OutboundNumber == "" {
			errs = append(errs, errors.New("TWILIO_OUTBOUND_NUMBER is required when outbound calling is configured"))
		}
	}
	if c.Outbound.GuardTTL <= 0 {
		c.Outbound.GuardTTL = time.Minute
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.DB.Host != "" {
		if c.DB.Port == 0 {
			c.DB.Port = 5432
		}
		if c.DB.Port < 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) OutboundEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.OutboundNumber != ""
}

func (c Config) RedisEnabled() bool { return c.Redis.Host != "" }

func (c Config) PostgresEnabled() bool { return c.DB.Host != "" }

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 1h, got %q", key, v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isHTTPURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
