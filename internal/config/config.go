package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Store        StoreConfig        `mapstructure:"store"`
	Database     DatabaseConfig     `mapstructure:"db"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Notification NotificationConfig `mapstructure:"notify"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"env"`
	Version     string `mapstructure:"version"`
}

func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the persistence driver: "postgres" or "memory".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Name               string        `mapstructure:"name"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"sslmode"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	PrepareStatements  bool          `mapstructure:"prepare_statements"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	AllowedMethods []string      `mapstructure:"allowed_methods"`
	AllowedHeaders []string      `mapstructure:"allowed_headers"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	// Per client IP
	RequestsPerSecond float64 `mapstructure:"rps"`
	BurstSize         int     `mapstructure:"burst"`
}

// NotificationConfig drives the asynchronous notification dispatcher.
// Publisher is "log" or "kafka".
type NotificationConfig struct {
	Publisher    string        `mapstructure:"publisher"`
	BufferSize   int           `mapstructure:"buffer_size"`
	KafkaBrokers []string      `mapstructure:"kafka_brokers"`
	KafkaTopic   string        `mapstructure:"kafka_topic"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`

	// Circuit breaker around the publisher
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret whose JSON
// body overrides JWT_SECRET and DB_PASSWORD.
type SecretsConfig struct {
	AWSSecretID string `mapstructure:"aws_secret_id"`
	AWSRegion   string `mapstructure:"aws_region"`
}

var defaults = map[string]any{
	"app.name":    "sehatsetu-api",
	"app.env":     "development",
	"app.version": "0.0.0",

	"server.host":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,

	"store.driver": "postgres",

	"db.host":                 "localhost",
	"db.port":                 5432,
	"db.name":                 "sehatsetu",
	"db.user":                 "sehatsetu",
	"db.password":             "",
	"db.sslmode":              "require",
	"db.max_open_conns":       25,
	"db.max_idle_conns":       10,
	"db.conn_max_lifetime":    30 * time.Minute,
	"db.conn_max_idle_time":   5 * time.Minute,
	"db.slow_query_threshold": 200 * time.Millisecond,
	"db.prepare_statements":   true,

	"jwt.secret":     "",
	"jwt.access_ttl": 15 * time.Minute,
	"jwt.issuer":     "sehatsetu-api",

	"log.level":  "info",
	"log.format": "json",
	"log.output": "stdout",

	"tracing.enabled":      false,
	"tracing.service_name": "sehatsetu-api",
	"tracing.endpoint":     "otel-collector:4318",
	"tracing.sample_rate":  0.1,

	"cors.allowed_origins": []string{"http://localhost:3000"},
	"cors.allowed_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"cors.allowed_headers": []string{"Authorization", "Content-Type", "X-Request-ID"},
	"cors.max_age":         12 * time.Hour,

	"rate_limit.rps":   100.0,
	"rate_limit.burst": 200,

	"notify.publisher":            "log",
	"notify.buffer_size":          1024,
	"notify.kafka_brokers":        []string{"localhost:9092"},
	"notify.kafka_topic":          "sehatsetu.notifications",
	"notify.send_timeout":         5 * time.Second,
	"notify.breaker_max_failures": 5,
	"notify.breaker_open_timeout": 30 * time.Second,

	"secrets.aws_secret_id": "",
	"secrets.aws_region":    "ap-south-1",
}

// Load reads configuration from defaults, an optional .env file and the
// environment. Keys map to env vars by upper-casing and replacing dots:
// db.password -> DB_PASSWORD.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Missing .env is fine. Its keys arrive flat (db_password), so they are
	// copied onto the dotted keys unless the real environment wins.
	if err := v.ReadInConfig(); err == nil {
		for key := range defaults {
			flat := strings.ReplaceAll(key, ".", "_")
			if _, inEnv := os.LookupEnv(strings.ToUpper(flat)); !inEnv && v.InConfig(flat) {
				v.Set(key, v.Get(flat))
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.CORS.AllowedMethods = splitList(cfg.CORS.AllowedMethods)
	cfg.CORS.AllowedHeaders = splitList(cfg.CORS.AllowedHeaders)
	cfg.Notification.KafkaBrokers = splitList(cfg.Notification.KafkaBrokers)

	return cfg, nil
}

// Validate enforces production security requirements. It runs after the
// secrets overlay so values fetched from AWS count.
func (c *Config) Validate() error {
	var errs []string

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(c.JWT.Secret) < 32 && c.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.Password == "" && !c.App.IsDevelopment() {
			errs = append(errs, "DB_PASSWORD is required in non-development environments")
		}
		if c.Database.SSLMode == "disable" && c.App.Environment == "production" {
			errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
		}
	case "memory":
		if c.App.Environment == "production" {
			errs = append(errs, "STORE_DRIVER=memory is not allowed in production")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be postgres or memory, got %q", c.Store.Driver))
	}

	switch c.Notification.Publisher {
	case "log":
	case "kafka":
		if len(c.Notification.KafkaBrokers) == 0 {
			errs = append(errs, "NOTIFY_KAFKA_BROKERS is required when NOTIFY_PUBLISHER=kafka")
		}
	default:
		errs = append(errs, fmt.Sprintf("NOTIFY_PUBLISHER must be log or kafka, got %q", c.Notification.Publisher))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// splitList accepts both real lists and a single comma separated env value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
