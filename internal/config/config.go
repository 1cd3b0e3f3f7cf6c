package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/iliyamo/shop-management/internal/model"
)

// Config holds all runtime configuration values.  Every field is bound to
// an environment variable; variables marked required abort startup when
// missing.  A .env file in the working directory is loaded first if present.
type Config struct {
	Env             string        `env:"APP_ENV" envDefault:"development"`           // application environment (development, production)
	Port            string        `env:"APP_PORT" envDefault:"8080"`                 // HTTP port to listen on
	ClientURL       string        `env:"CLIENT_URL" envDefault:"http://localhost:8080"` // base URL used in activation links
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DB        DBConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	SMTP      SMTPConfig
	AMQP      AMQPConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Payment   PaymentConfig
}

// DBConfig configures the MySQL pool.
type DBConfig struct {
	User     string        `env:"DB_USER,required"`
	Pass     string        `env:"DB_PASS"` // empty allowed
	Host     string        `env:"DB_HOST,required"`
	Port     string        `env:"DB_PORT" envDefault:"3306"`
	Name     string        `env:"DB_NAME,required"`
	Timeout  time.Duration `env:"DB_TIMEOUT" envDefault:"5s"` // per-query deadline
	MaxOpen  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdle  int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	Lifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	Migrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// JWTConfig holds the three signing keys and token lifetimes.
type JWTConfig struct {
	AccessKey     string        `env:"JWT_ACCESS_KEY,required"`
	RefreshKey    string        `env:"JWT_REFRESH_KEY,required"`
	ActivationKey string        `env:"JWT_SECRET,required"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	ActivationTTL time.Duration `env:"ACTIVATION_TOKEN_TTL" envDefault:"10m"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
}

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	SameSite string `env:"COOKIE_SAMESITE" envDefault:"none"` // none, lax or strict
	Domain   string `env:"COOKIE_DOMAIN"`
}

// SMTPConfig configures outbound mail.  An empty Host disables delivery;
// messages are then only logged.
type SMTPConfig struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	From     string        `env:"SMTP_FROM" envDefault:"no-reply@shop-management.local"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
}

// AMQPConfig configures the RabbitMQ mail queue.  An empty URL sends mail
// synchronously instead.
type AMQPConfig struct {
	URL         string        `env:"AMQP_URL"`
	MailQueue   string        `env:"AMQP_MAIL_QUEUE" envDefault:"mail.outbound"`
	Prefetch    int           `env:"AMQP_PREFETCH" envDefault:"10"`
	Backoff     time.Duration `env:"AMQP_RECONNECT_BACKOFF" envDefault:"2s"`
	DialTimeout time.Duration `env:"AMQP_DIAL_TIMEOUT" envDefault:"5s"`
}

// MongoConfig configures the payment ledger.  An empty URI disables it.
type MongoConfig struct {
	URI      string `env:"MONGODB_URI"`
	Database string `env:"MONGODB_DATABASE" envDefault:"shop_management"`
}

// LogConfig configures logrus and file rotation.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`   // text or json
	Output     string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file or both
	File       string `env:"LOG_FILE" envDefault:"logs/app.log"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"shop-management"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// PaymentConfig drives the manual payment reference flow.  Accounts are
// "provider:type:number" triples separated by commas.
type PaymentConfig struct {
	ExchangeRate float64  `env:"PAYMENT_EXCHANGE_RATE" envDefault:"120"`
	Currency     string   `env:"PAYMENT_CURRENCY" envDefault:"BDT"`
	Country      string   `env:"PAYMENT_COUNTRY" envDefault:"bangladesh"`
	Accounts     []string `env:"PAYMENT_ACCOUNTS" envSeparator:"," envDefault:"bkash:personal:01744175460,bkash:personal:01791915643,nagad:personal:01791915643,nagad:personal:01744175460"`
}

// ReceivingAccounts parses Accounts, skipping malformed entries.
func (p PaymentConfig) ReceivingAccounts() []model.PaymentAccount {
	out := make([]model.PaymentAccount, 0, len(p.Accounts))
	for _, raw := range p.Accounts {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		if len(parts) != 3 {
			continue
		}
		out = append(out, model.PaymentAccount{Provider: parts[0], AccountType: parts[1], Number: parts[2]})
	}
	return out
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads .env (when present) and the process environment into a
// Config.  Missing required variables are returned as an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.checkRequired(); err != nil {
		return Config{}, err
	}
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()
	return cfg, nil
}

// checkRequired rejects required variables that are set but empty.
func (c Config) checkRequired() error {
	required := []struct{ key, val string }{
		{"DB_USER", c.DB.User},
		{"DB_HOST", c.DB.Host},
		{"DB_NAME", c.DB.Name},
		{"JWT_ACCESS_KEY", c.JWT.AccessKey},
		{"JWT_REFRESH_KEY", c.JWT.RefreshKey},
		{"JWT_SECRET", c.JWT.ActivationKey},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("missing required env var: %s", r.key)
		}
	}
	return nil
}
