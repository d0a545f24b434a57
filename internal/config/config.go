package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by cmd/api).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Activity ActivityConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Env  string
	Port int

	// Timezone decides the calendar day used by "today" statistics.
	Timezone string
	Location *time.Location
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StorageConfig struct {
	// Backend for owners and properties: memory or postgres.
	Backend string
}

type ActivityConfig struct {
	// Backend for the activity log: memory, postgres or redis.
	Backend       string
	PageSize      int
	AppendRetries int
	RedisKey      string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Migrate applies embedded migrations on startup.
	Migrate bool

	// Pool tuning; zero picks the pool defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = intVar(parseErrs, "APP_PORT", 8080)
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	c.Activity.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("ACTIVITY_BACKEND")))
	c.Activity.PageSize, parseErrs = intVar(parseErrs, "ACTIVITY_PAGE_SIZE", 0)
	c.Activity.AppendRetries, parseErrs = intVar(parseErrs, "ACTIVITY_APPEND_RETRIES", 2)
	c.Activity.RedisKey = strings.TrimSpace(os.Getenv("REDIS_ACTIVITY_KEY"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = intVar(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.Migrate, parseErrs = boolVar(parseErrs, "DB_MIGRATE", false)
	c.DB.MaxOpenConns, parseErrs = intVar(parseErrs, "DB_MAX_OPEN_CONNS", 0)
	c.DB.MaxIdleConns, parseErrs = intVar(parseErrs, "DB_MAX_IDLE_CONNS", 0)
	c.DB.ConnMaxLifetime, parseErrs = durationVar(parseErrs, "DB_CONN_MAX_LIFETIME")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = intVar(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB, parseErrs = intVar(parseErrs, "REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL, parseErrs = durationVar(parseErrs, "JWT_ACCESS_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults fills optional values. Production-only requirements are left
// empty so Validate can report them.
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Activity.Backend == "" {
		c.Activity.Backend = c.Storage.Backend
	}
	if c.Activity.RedisKey == "" {
		c.Activity.RedisKey = "activity:log"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.App.Location == nil {
		if loc, err := time.LoadLocation(c.App.Timezone); err == nil {
			c.App.Location = loc
		}
	}
	if c.DB.SSLMode == "" && !c.IsProduction() {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
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
	if c.App.Location == nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE must be an IANA zone name, got %q", c.App.Timezone))
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, postgres, got %q", c.Storage.Backend))
	}
	switch c.Activity.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("ACTIVITY_BACKEND must be one of memory, postgres, redis, got %q", c.Activity.Backend))
	}
	if c.IsProduction() && (c.Storage.Backend == BackendMemory || c.Activity.Backend == BackendMemory) {
		errs = append(errs, errors.New("memory backends are not allowed in production"))
	}
	if c.Activity.PageSize < 0 || c.Activity.PageSize > 100 {
		errs = append(errs, fmt.Errorf("ACTIVITY_PAGE_SIZE must be between 1 and 100 (0 uses the default), got %d", c.Activity.PageSize))
	}
	if c.Activity.AppendRetries < 0 || c.Activity.AppendRetries > 10 {
		errs = append(errs, fmt.Errorf("ACTIVITY_APPEND_RETRIES must be between 0 and 10, got %d", c.Activity.AppendRetries))
	}

	if c.NeedsPostgres() {
		errs = append(errs, c.validateDB()...)
	}
	if c.NeedsRedis() {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
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
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 || c.DB.ConnMaxLifetime < 0 {
		errs = append(errs, errors.New("DB pool settings must not be negative"))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) NeedsPostgres() bool {
	return c.Storage.Backend == BackendPostgres || c.Activity.Backend == BackendPostgres
}

func (c Config) NeedsRedis() bool {
	return c.Activity.Backend == BackendRedis
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

func intVar(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func boolVar(errs []error, key string, def bool) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

func durationVar(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
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
