package config // package config loads application configuration from a YAML file, .env and environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration values.  Values come from an
// optional YAML file named by CONFIG_FILE; environment variables (after
// .env is loaded) override whatever the file provides.  Cache and rate
// limit settings are environment-only, matching their middleware.
type Config struct {
	Env           string          `yaml:"env"`            // application environment (dev/test/prod)
	Port          string          `yaml:"port"`           // HTTP port to listen on
	AllowedOrigin string          `yaml:"allowed_origin"` // single CORS origin allowed with credentials
	BcryptCost    int             `yaml:"bcrypt_cost"`    // bcrypt cost for password hashing
	Database      DatabaseConfig  `yaml:"database"`
	Session       SessionConfig   `yaml:"session"`
	Upload        UploadConfig    `yaml:"upload"`
	Notify        NotifyConfig    `yaml:"notify"`
	Log           LogConfig       `yaml:"log"`
	Redis         RedisConfig     `yaml:"redis"`
	Cache         CacheConfig     `yaml:"-"`
	RateLimit     RateLimitConfig `yaml:"-"`
}

// DatabaseConfig contains MySQL connection settings.  DSN wins when set.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// SessionConfig contains cookie session settings.
type SessionConfig struct {
	Secret     string        `yaml:"secret"`      // HMAC key for the session cookie
	CookieName string        `yaml:"cookie_name"` // defaults to rentals_session
	TTL        time.Duration `yaml:"ttl"`         // sliding lifetime, defaults to 24h
	Secure     bool          `yaml:"secure"`      // mark the cookie Secure (always on in prod)
}

// UploadConfig contains file storage settings.
type UploadConfig struct {
	Dir         string `yaml:"dir"`           // root directory for images/ and documents/
	MaxUploadMB int64  `yaml:"max_upload_mb"` // per-file limit
}

// NotifyConfig contains the delivery tracking broker settings.  An empty
// URL disables notifications.
type NotifyConfig struct {
	RabbitURL  string `yaml:"rabbitmq_url"`
	Queue      string `yaml:"queue"`
	BufferSize int    `yaml:"buffer"`
	LogDir     string `yaml:"log_dir"` // consumer output directory
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load builds a Config.  A missing .env file is not an error; a
// CONFIG_FILE that cannot be read or parsed is.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()
	cfg.Cache = LoadCacheConfig()
	cfg.RateLimit = LoadRateLimitConfig()
	return cfg, nil
}

// overrideWithEnv replaces file values with environment variables if present.
func (c *Config) overrideWithEnv() {
	setStr(&c.Env, "APP_ENV")
	setStr(&c.Port, "APP_PORT")
	setStr(&c.AllowedOrigin, "ALLOWED_ORIGIN")
	setInt(&c.BcryptCost, "BCRYPT_COST")

	setStr(&c.Database.DSN, "DB_DSN")
	setStr(&c.Database.User, "DB_USER")
	setStr(&c.Database.Password, "DB_PASS")
	setStr(&c.Database.Host, "DB_HOST")
	setStr(&c.Database.Port, "DB_PORT")
	setStr(&c.Database.Name, "DB_NAME")

	setStr(&c.Session.Secret, "SESSION_SECRET")
	setStr(&c.Session.CookieName, "SESSION_COOKIE")
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.TTL = d
		}
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		c.Session.Secure = envBool("SESSION_SECURE", c.Session.Secure)
	}

	setStr(&c.Upload.Dir, "UPLOAD_DIR")
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Upload.MaxUploadMB = n
		}
	}

	setStr(&c.Notify.RabbitURL, "RABBITMQ_URL")
	setStr(&c.Notify.Queue, "RABBITMQ_QUEUE")
	setInt(&c.Notify.BufferSize, "NOTIFY_BUFFER")
	setStr(&c.Notify.LogDir, "DELIVERY_LOG_DIR")

	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Log.Format, "LOG_FORMAT")

	c.Redis.overrideWithEnv()
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.AllowedOrigin == "" {
		c.AllowedOrigin = "http://localhost:5173"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "rentals_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Env == "prod" {
		c.Session.Secure = true
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxUploadMB <= 0 {
		c.Upload.MaxUploadMB = 5
	}
	if c.Notify.Queue == "" {
		c.Notify.Queue = "delivery_tracking"
	}
	if c.Notify.BufferSize <= 0 {
		c.Notify.BufferSize = 256
	}
	if c.Notify.LogDir == "" {
		c.Notify.LogDir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if _, err := c.DSN(); err != nil {
		return err
	}
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("invalid BCRYPT_COST: %d", c.BcryptCost)
	}
	return nil
}

// DSN returns the MySQL data source name.  parseTime=true maps DATETIME
// to time.Time and loc=UTC keeps times consistent.
func (c Config) DSN() (string, error) {
	db := c.Database
	if db.DSN != "" {
		return db.DSN, nil
	}
	if db.User == "" || db.Host == "" || db.Name == "" {
		return "", errors.New("database settings missing: set DB_DSN or DB_USER, DB_HOST and DB_NAME")
	}
	port := db.Port
	if port == "" {
		port = "3306"
	}
	auth := db.User
	if db.Password != "" {
		auth = fmt.Sprintf("%s:%s", db.User, db.Password)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, db.Host, port, db.Name), nil
}

// MaxUploadBytes is the per-file upload limit in bytes.
func (c Config) MaxUploadBytes() int64 { return c.Upload.MaxUploadMB << 20 }

// IsProd reports whether the server runs in production mode.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
