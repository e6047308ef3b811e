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

// Config holds all configuration required by the API process and the CLI.
// All values come from env (optionally seeded from a .env file by the binary).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Telephony TelephonyConfig
	Twilio    TwilioConfig
	Vapi      VapiConfig
	Dialer    DialerConfig
	Stores    StoresConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full.
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type TelephonyConfig struct {
	// Provider is one of twilio, vapi, mock.
	Provider string
	// PublicBaseURL is where vendors reach our webhooks.
	PublicBaseURL string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	ValidateSignature bool

	// StreamURL and Greeting are answer-time defaults for the voice webhook.
	StreamURL string
	Greeting  string
}

type VapiConfig struct {
	APIKey        string
	BaseURL       string
	PhoneNumberID string
	Timeout       time.Duration
}

type DialerConfig struct {
	DefaultDelay           time.Duration
	MaxDelay               time.Duration
	MaxConsecutiveFailures int
	// MaxConcurrentBatches > 0 enables the Redis batch limiter.
	MaxConcurrentBatches int
	BatchTTL             time.Duration
}

type StoresConfig struct {
	// Calls is memory or postgres.
	Calls string
	// DNC is memory, redis or postgres.
	DNC         string
	DNCRedisKey string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optInt(parseErrs, "APP_PORT", 8080)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optInt(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optInt(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Telephony.Provider = strings.ToLower(strings.TrimSpace(os.Getenv("TELEPHONY_PROVIDER")))
	c.Telephony.PublicBaseURL = strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER"))
	c.Twilio.ValidateSignature, parseErrs = optBool(parseErrs, "TWILIO_VALIDATE_SIGNATURE", false)
	c.Twilio.StreamURL = strings.TrimSpace(os.Getenv("TWILIO_STREAM_URL"))
	c.Twilio.Greeting = strings.TrimSpace(os.Getenv("TWILIO_GREETING"))

	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))
	c.Vapi.PhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER_ID"))
	c.Vapi.Timeout, parseErrs = optDuration(parseErrs, "VAPI_TIMEOUT")

	c.Dialer.DefaultDelay, parseErrs = optDuration(parseErrs, "DIALER_DEFAULT_DELAY")
	c.Dialer.MaxDelay, parseErrs = optDuration(parseErrs, "DIALER_MAX_DELAY")
	c.Dialer.MaxConsecutiveFailures, parseErrs = optInt(parseErrs, "DIALER_MAX_CONSECUTIVE_FAILURES", 0)
	c.Dialer.MaxConcurrentBatches, parseErrs = optInt(parseErrs, "DIALER_MAX_CONCURRENT_BATCHES", 0)
	c.Dialer.BatchTTL, parseErrs = optDuration(parseErrs, "DIALER_BATCH_TTL")

	c.Stores.Calls = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	c.Stores.DNC = strings.ToLower(strings.TrimSpace(os.Getenv("DNC_DRIVER")))
	c.Stores.DNCRedisKey = strings.TrimSpace(os.Getenv("DNC_REDIS_KEY"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// WithDefaults fills optional values. Production-only requirements are left empty
// so Validate can report them.
func (c Config) WithDefaults() Config {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}
	if c.Telephony.Provider == "" {
		c.Telephony.Provider = "mock"
	}
	if c.Vapi.Timeout <= 0 {
		c.Vapi.Timeout = 15 * time.Second
	}
	if c.Dialer.DefaultDelay == 0 {
		c.Dialer.DefaultDelay = 5 * time.Second
	}
	if c.Dialer.MaxDelay == 0 {
		c.Dialer.MaxDelay = 5 * time.Minute
	}
	if c.Dialer.BatchTTL <= 0 {
		c.Dialer.BatchTTL = time.Hour
	}
	if c.Stores.Calls == "" {
		c.Stores.Calls = "memory"
	}
	if c.Stores.DNC == "" {
		c.Stores.DNC = "memory"
	}
	if c.Stores.DNCRedisKey == "" {
		c.Stores.DNCRedisKey = "dnc:numbers"
	}
	return c
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Telephony.Provider {
	case "twilio":
		if c.Twilio.AccountSID == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required for the twilio provider"))
		}
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required for the twilio provider"))
		}
		if c.Twilio.FromNumber == "" {
			errs = append(errs, errors.New("TWILIO_FROM_NUMBER is required for the twilio provider"))
		}
		if c.Telephony.PublicBaseURL == "" {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required for the twilio provider"))
		}
	case "vapi":
		if c.Vapi.APIKey == "" {
			errs = append(errs, errors.New("VAPI_API_KEY is required for the vapi provider"))
		}
		if c.Vapi.PhoneNumberID == "" {
			errs = append(errs, errors.New("VAPI_PHONE_NUMBER_ID is required for the vapi provider"))
		}
	case "mock":
		if c.IsProduction() {
			errs = append(errs, errors.New("TELEPHONY_PROVIDER=mock is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("TELEPHONY_PROVIDER must be one of twilio, vapi, mock, got %q", c.Telephony.Provider))
	}

	if c.Telephony.PublicBaseURL != "" {
		if u, err := url.Parse(c.Telephony.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute url, got %q", c.Telephony.PublicBaseURL))
		}
	}
	if c.Twilio.ValidateSignature && (c.Twilio.AuthToken == "" || c.Telephony.PublicBaseURL == "") {
		errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURE requires TWILIO_AUTH_TOKEN and PUBLIC_BASE_URL"))
	}
	if c.IsProduction() && c.Telephony.Provider == "twilio" && !c.Twilio.ValidateSignature {
		errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURE must be true in production"))
	}

	needDB, needRedis := false, c.Dialer.MaxConcurrentBatches > 0
	switch c.Stores.Calls {
	case "postgres":
		needDB = true
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, got %q", c.Stores.Calls))
	}
	switch c.Stores.DNC {
	case "postgres":
		needDB = true
	case "redis":
		needRedis = true
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("DNC_DRIVER must be one of memory, redis, postgres, got %q", c.Stores.DNC))
	}

	if needDB {
		errs = append(errs, c.validateDB()...)
	}
	if needRedis {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Dialer.DefaultDelay < 0 {
		errs = append(errs, errors.New("DIALER_DEFAULT_DELAY must not be negative"))
	}
	if c.Dialer.MaxDelay > 0 && c.Dialer.DefaultDelay > c.Dialer.MaxDelay {
		errs = append(errs, errors.New("DIALER_DEFAULT_DELAY must not exceed DIALER_MAX_DELAY"))
	}
	if c.Dialer.MaxConsecutiveFailures < 0 {
		errs = append(errs, errors.New("DIALER_MAX_CONSECUTIVE_FAILURES must not be negative"))
	}
	if c.Dialer.MaxConcurrentBatches < 0 {
		errs = append(errs, errors.New("DIALER_MAX_CONCURRENT_BATCHES must not be negative"))
	}

	return joinErrors(errs)
}

func (c Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	} else if !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

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

// NeedsPostgres reports whether any configured store is backed by Postgres.
func (c Config) NeedsPostgres() bool {
	return c.Stores.Calls == "postgres" || c.Stores.DNC == "postgres"
}

// NeedsRedis reports whether the DNC list or the batch limiter use Redis.
func (c Config) NeedsRedis() bool {
	return c.Stores.DNC == "redis" || c.Dialer.MaxConcurrentBatches > 0
}

func optInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optBool(errs []error, key string, def bool) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

func optDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration like 5s, got %q", key, v))
	}
	return d, errs
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
