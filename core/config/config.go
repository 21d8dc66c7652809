package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrTokenMissing is returned when no bot token could be resolved from the
// config file, the environment or the OS keychain.
var ErrTokenMissing = errors.New("transport token is required")

// TransportConfig selects and configures the messaging API the bot polls.
type TransportConfig struct {
	Kind    string `yaml:"kind" envconfig:"TRANSPORT_KIND"`
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	BaseURL string `yaml:"base_url" envconfig:"TRANSPORT_BASE_URL"`
	// KeyringAccount names the keychain entry holding the token when Token is empty.
	KeyringAccount        string `yaml:"keyring_account" envconfig:"KEYRING_ACCOUNT"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" envconfig:"TRANSPORT_REQUEST_TIMEOUT_SECONDS"`
}

// PollingConfig controls the update polling loop.
type PollingConfig struct {
	IntervalMS     int `yaml:"interval_ms" envconfig:"POLL_INTERVAL_MS"`
	ErrorBackoffMS int `yaml:"error_backoff_ms" envconfig:"POLL_ERROR_BACKOFF_MS"`
	Limit          int `yaml:"limit" envconfig:"POLL_LIMIT"`
}

// SenderConfig controls outbound pacing and reply chunking.
type SenderConfig struct {
	PacingMS        int `yaml:"pacing_ms" envconfig:"SEND_PACING_MS"`
	MaxMessageChars int `yaml:"max_message_chars" envconfig:"SEND_MAX_MESSAGE_CHARS"`
}

// StateConfig selects where the polling cursor is persisted.
type StateConfig struct {
	Backend string `yaml:"backend" envconfig:"STATE_BACKEND"`
	File    string `yaml:"file" envconfig:"STATE_FILE"`
	// Key identifies this bot's cursor row/key in shared backends.
	Key string `yaml:"key" envconfig:"STATE_KEY"`
}

// DatabaseConfig holds Postgres connection settings for the postgres state backend.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig holds connection settings for the redis state backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// GreetingConfig configures the welcome message.
type GreetingConfig struct {
	Timezone string `yaml:"timezone" envconfig:"GREETING_TIMEZONE"`
}

// RateLimitConfig enforces a minimum interval between handled messages of one chat.
// Zero disables limiting.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// TransportRubika polls the Rubika bot API.
	TransportRubika = "rubika"
	// TransportTelegram polls the Telegram bot API.
	TransportTelegram = "telegram"
)

const (
	// BackendFile keeps the cursor in a local JSON file.
	BackendFile = "file"
	// BackendPostgres keeps the cursor in a Postgres table.
	BackendPostgres = "postgres"
	// BackendRedis keeps the cursor under a Redis key.
	BackendRedis = "redis"
)

const (
	defaultRubikaBaseURL   = "https://botapi.rubika.ir/v3"
	defaultTelegramBaseURL = "https://api.telegram.org"
	defaultRequestTimeout  = 20
	defaultPollIntervalMS  = 1200
	defaultErrorBackoffMS  = 2000
	defaultPollLimit       = 20
	defaultPacingMS        = 120
	defaultMaxMessageChars = 4000
	defaultStateFile       = "fontbot_state.json"
	defaultStateKey        = "fontbot"
	defaultTimezone        = "Asia/Tehran"
)

// Config aggregates the bot configuration.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Polling   PollingConfig   `yaml:"polling"`
	Sender    SenderConfig    `yaml:"sender"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Greeting  GreetingConfig  `yaml:"greeting"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing token is looked up in the OS keychain before validation.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := ResolveToken(&cfg); err != nil {
		return nil, err
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Transport.Token = strings.TrimSpace(cfg.Transport.Token)
	if cfg.Transport.Token == "" {
		return ErrTokenMissing
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.Transport.Kind))
	if kind == "" {
		kind = TransportRubika
	}
	switch kind {
	case TransportRubika:
		if strings.TrimSpace(cfg.Transport.BaseURL) == "" {
			cfg.Transport.BaseURL = defaultRubikaBaseURL
		}
	case TransportTelegram:
		if strings.TrimSpace(cfg.Transport.BaseURL) == "" {
			cfg.Transport.BaseURL = defaultTelegramBaseURL
		}
	default:
		return fmt.Errorf("invalid transport.kind %q; allowed: rubika, telegram", cfg.Transport.Kind)
	}
	cfg.Transport.Kind = kind
	cfg.Transport.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Transport.BaseURL), "/")
	if cfg.Transport.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("transport.request_timeout_seconds must be >= 0")
	}
	if cfg.Transport.RequestTimeoutSeconds == 0 {
		cfg.Transport.RequestTimeoutSeconds = defaultRequestTimeout
	}

	if err := normalizePolling(&cfg.Polling); err != nil {
		return err
	}
	if err := normalizeSender(&cfg.Sender); err != nil {
		return err
	}
	if err := normalizeState(cfg); err != nil {
		return err
	}

	tz := strings.TrimSpace(cfg.Greeting.Timezone)
	if tz == "" {
		tz = defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid greeting.timezone %q: %w", tz, err)
	}
	cfg.Greeting.Timezone = tz

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	return nil
}

func normalizePolling(p *PollingConfig) error {
	if p.IntervalMS < 0 || p.ErrorBackoffMS < 0 || p.Limit < 0 {
		return fmt.Errorf("polling values must be >= 0")
	}
	if p.IntervalMS == 0 {
		p.IntervalMS = defaultPollIntervalMS
	}
	if p.ErrorBackoffMS == 0 {
		p.ErrorBackoffMS = defaultErrorBackoffMS
	}
	if p.Limit == 0 {
		p.Limit = defaultPollLimit
	}
	return nil
}

func normalizeSender(s *SenderConfig) error {
	if s.PacingMS < 0 {
		return fmt.Errorf("sender.pacing_ms must be >= 0")
	}
	if s.MaxMessageChars < 0 {
		return fmt.Errorf("sender.max_message_chars must be >= 0")
	}
	if s.PacingMS == 0 {
		s.PacingMS = defaultPacingMS
	}
	if s.MaxMessageChars == 0 {
		s.MaxMessageChars = defaultMaxMessageChars
	}
	return nil
}

func normalizeState(cfg *Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendFile:
		if strings.TrimSpace(cfg.State.File) == "" {
			cfg.State.File = defaultStateFile
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when state.backend is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 2
		}
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when state.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: file, postgres, redis", cfg.State.Backend)
	}
	cfg.State.Backend = backend
	if strings.TrimSpace(cfg.State.Key) == "" {
		cfg.State.Key = defaultStateKey
	}
	return nil
}

// PollInterval returns the sleep between successful poll cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMS) * time.Millisecond
}

// ErrorBackoff returns the sleep after a failed fetch.
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Polling.ErrorBackoffMS) * time.Millisecond
}

// Pacing returns the minimum delay between two outbound sends.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Sender.PacingMS) * time.Millisecond
}

// RequestTimeout returns the HTTP client timeout for transport calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Transport.RequestTimeoutSeconds) * time.Second
}
