package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt builds the error returned for missing variables
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by Load; optional
// groups (mail, queue, tickets) fall back to documented defaults.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Mail    MailConfig
	Queue   QueueConfig
	Tickets TicketConfig
}

// MailConfig configures the SMTP transport.  When any of host, port, user
// or password is missing the mailer only logs messages.
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	TLS      bool   // implicit TLS (port 465) instead of STARTTLS
	FromName string // display name of the From header
}

// Enabled reports whether enough settings are present to talk SMTP.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port > 0 && m.User != "" && m.Pass != ""
}

// Addr returns host:port.
func (m MailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// QueueConfig configures the RabbitMQ connection used for asynchronous
// ticket sends.
type QueueConfig struct {
	URL         string
	TicketQueue string
}

// TicketConfig holds ticket email settings.
type TicketConfig struct {
	AppName  string
	Currency string // used for events created without one
	QRSize   int
}

// Load reads configuration values from environment variables.  A missing
// required variable or a malformed integer is reported as an error; the
// caller decides whether to abort.
func Load() (Config, error) {
	var errs []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, "missing required env var: "+key)
		}
		return v
	}
	mustInt := func(key string) int {
		s := must(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid int for %s: %q", key, s))
		}
		return n
	}

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		Mail:           LoadMailConfig(),
		Queue:          LoadQueueConfig(),
		Tickets:        LoadTicketConfig(),
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// LoadMailConfig reads SMTP_* variables.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     envInt("SMTP_PORT", 0),
		User:     os.Getenv("SMTP_USER"),
		Pass:     os.Getenv("SMTP_PASS"),
		TLS:      envBool("SMTP_TLS", true),
		FromName: envStr("MAIL_FROM_NAME", envStr("APP_NAME", "Event Tickets")),
	}
}

// LoadQueueConfig reads RABBITMQ_URL (or AMQP_URL) and TICKET_QUEUE.
func LoadQueueConfig() QueueConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return QueueConfig{
		URL:         url,
		TicketQueue: envStr("TICKET_QUEUE", "ticket.send"),
	}
}

// LoadTicketConfig reads APP_NAME, DEFAULT_CURRENCY and QR_SIZE.
func LoadTicketConfig() TicketConfig {
	size := envInt("QR_SIZE", 256)
	if size < 64 {
		size = 64
	}
	return TicketConfig{
		AppName:  envStr("APP_NAME", "Event Tickets"),
		Currency: strings.ToUpper(envStr("DEFAULT_CURRENCY", "USD")),
		QRSize:   size,
	}
}
