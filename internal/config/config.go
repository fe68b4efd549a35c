package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/housing-engine/internal/domain"
)

const (
	DispatchSync  = "sync"
	DispatchQueue = "queue"

	TransportSMTP  = "smtp"
	TransportRelay = "relay"
)

var expiryPolicies = map[string]struct{}{
	"none":     {},
	"withdraw": {},
	"confirm":  {},
	"clear":    {},
}

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns int `env:"DB_MAX_IDLE_CONNS,default=5"`

	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         int    `env:"SMTP_PORT,default=0"`
	SMTPAuthRequired bool   `env:"SMTP_AUTH_REQUIRED,default=true"`
	SMTPUsername     string `env:"SMTP_USERNAME"`
	SMTPPassword     string `env:"SMTP_PASSWORD"`
	SMTPFrom         string `env:"SMTP_FROM"`
	SMTPStartTLS     bool   `env:"SMTP_STARTTLS,default=true"`
	SMTPTimeoutRaw   string `env:"SMTP_TIMEOUT,default=10s"`

	EmailEnabled         bool   `env:"EMAIL_ENABLED,default=false"`
	EmailTransport       string `env:"EMAIL_TRANSPORT,default=smtp"`
	MailRelayURL         string `env:"MAIL_RELAY_URL"`
	EmailRateLimitPerSec int    `env:"EMAIL_RATE_LIMIT_PER_SEC,default=10"`

	DispatchMode      string `env:"DISPATCH_MODE,default=sync"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=4"`
	WorkerMetricsPort int    `env:"WORKER_METRICS_PORT,default=9091"`

	DuplicateResponseWindowRaw    string `env:"DUPLICATE_RESPONSE_WINDOW,default=120h"`
	DuplicateExpiryPolicy         string `env:"DUPLICATE_EXPIRY_POLICY,default=none"`
	DuplicateScanIntervalRaw      string `env:"DUPLICATE_SCAN_INTERVAL,default=1h"`
	NotificationConfigCacheTTLRaw string `env:"NOTIFICATION_CONFIG_CACHE_TTL,default=5m"`

	// Parsed from the *Raw fields by Load.
	SMTPTimeout                time.Duration
	DuplicateResponseWindow    time.Duration
	DuplicateScanInterval      time.Duration
	NotificationConfigCacheTTL time.Duration
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{name: "SMTP_TIMEOUT", raw: c.SMTPTimeoutRaw, dst: &c.SMTPTimeout},
		{name: "DUPLICATE_RESPONSE_WINDOW", raw: c.DuplicateResponseWindowRaw, dst: &c.DuplicateResponseWindow},
		{name: "DUPLICATE_SCAN_INTERVAL", raw: c.DuplicateScanIntervalRaw, dst: &c.DuplicateScanInterval},
		{name: "NOTIFICATION_CONFIG_CACHE_TTL", raw: c.NotificationConfigCacheTTLRaw, dst: &c.NotificationConfigCacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", d.name, d.raw)
		}
		*d.dst = parsed
	}

	c.DispatchMode = strings.ToLower(strings.TrimSpace(c.DispatchMode))
	switch c.DispatchMode {
	case DispatchSync:
	case DispatchQueue:
		if strings.TrimSpace(c.RabbitMQURL) == "" {
			return fmt.Errorf("RABBITMQ_URL is required when DISPATCH_MODE=%s", DispatchQueue)
		}
	default:
		return fmt.Errorf("invalid DISPATCH_MODE %q", c.DispatchMode)
	}

	c.EmailTransport = strings.ToLower(strings.TrimSpace(c.EmailTransport))
	switch c.EmailTransport {
	case TransportSMTP:
	case TransportRelay:
		if strings.TrimSpace(c.MailRelayURL) == "" {
			return fmt.Errorf("MAIL_RELAY_URL is required when EMAIL_TRANSPORT=%s", TransportRelay)
		}
	default:
		return fmt.Errorf("invalid EMAIL_TRANSPORT %q", c.EmailTransport)
	}

	c.DuplicateExpiryPolicy = strings.ToLower(strings.TrimSpace(c.DuplicateExpiryPolicy))
	if _, ok := expiryPolicies[c.DuplicateExpiryPolicy]; !ok {
		return fmt.Errorf("invalid DUPLICATE_EXPIRY_POLICY %q", c.DuplicateExpiryPolicy)
	}

	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 1
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS %d", c.DBMaxOpenConns)
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS %d", c.DBMaxIdleConns)
	}
	return nil
}

// SMTPSettings returns the mail server settings, or nil when none of them
// is configured. Incomplete settings are returned as-is; the delivery
// gateway reports which part is missing.
func (c *Config) SMTPSettings() *domain.SMTPSettings {
	if strings.TrimSpace(c.SMTPHost) == "" && c.SMTPPort == 0 &&
		strings.TrimSpace(c.SMTPUsername) == "" && strings.TrimSpace(c.SMTPFrom) == "" {
		return nil
	}

	return &domain.SMTPSettings{
		Host:         strings.TrimSpace(c.SMTPHost),
		Port:         c.SMTPPort,
		AuthRequired: c.SMTPAuthRequired,
		Username:     strings.TrimSpace(c.SMTPUsername),
		Password:     c.SMTPPassword,
		FromAddress:  strings.TrimSpace(c.SMTPFrom),
		StartTLS:     c.SMTPStartTLS,
	}
}

// DeliverySettings returns the settings the delivery gateway validates
// before every send. A relay deployment has no SMTP server of its own: the
// relay endpoint stands in for host and port, and the relay authenticates
// the service rather than an SMTP login.
func (c *Config) DeliverySettings() (*domain.SMTPSettings, error) {
	if c.EmailTransport != TransportRelay {
		return c.SMTPSettings(), nil
	}

	u, err := url.Parse(strings.TrimSpace(c.MailRelayURL))
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid MAIL_RELAY_URL %q", c.MailRelayURL)
	}
	port := 443
	if u.Scheme == "http" {
		port = 80
	}
	if raw := u.Port(); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MAIL_RELAY_URL port %q", raw)
		}
	}

	return &domain.SMTPSettings{
		Host:        u.Hostname(),
		Port:        port,
		FromAddress: strings.TrimSpace(c.SMTPFrom),
	}, nil
}

// ValidateWorker checks the settings only the worker process needs. The
// worker always consumes from RabbitMQ, whatever DISPATCH_MODE says.
func (c *Config) ValidateWorker() error {
	if strings.TrimSpace(c.RabbitMQURL) == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the worker")
	}
	if c.WorkerMetricsPort < 1 || c.WorkerMetricsPort > 65535 {
		return fmt.Errorf("invalid WORKER_METRICS_PORT %d", c.WorkerMetricsPort)
	}
	return nil
}
