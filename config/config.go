package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Payphone-Digital/devcamper/internal/constants"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Query     QueryConfig
	Upload    UploadConfig
	CORS      CORSConfig
	Mail      MailConfig
	Geocoder  GeocoderConfig
	Seed      SeedConfig
}

type AppConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Debug       bool          `mapstructure:"debug"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Port        string        `mapstructure:"port"`
	LogsPath    string        `mapstructure:"logs_path"`
	LogLevel    string        `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret           string        `mapstructure:"secret"`
	ExpirationTime   time.Duration `mapstructure:"expiration_time"`
	CookieExpireDays int           `mapstructure:"cookie_expire_days"`
	SigningAlgorithm string        `mapstructure:"signing_algorithm"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

type RateLimitConfig struct {
	Request  int `mapstructure:"request"`
	Duration int `mapstructure:"duration"` // seconds
}

type QueryConfig struct {
	MaxLimit int `mapstructure:"max_limit"`
	// Query keys allowed to repeat; every other key collapses to its last value.
	MultiValueKeys []string `mapstructure:"multi_value_keys"`
}

type UploadConfig struct {
	Path        string `mapstructure:"path"`
	MaxFileSize int64  `mapstructure:"max_file_size"` // bytes
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type MailConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type GeocoderConfig struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

type SeedConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

const defaultJWTSecret = "default_secret_key_change_in_production"

func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "devcamper"),
			Environment: getEnv("APP_ENV", constants.DefaultEnvironment),
			Port:        getEnv("APP_PORT", constants.DefaultPort),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
			LogsPath:    getEnv("LOGS_PATH", "./logs"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "devcamper"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME", 60),
			ConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME", 10),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getEnvAsDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		},
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", defaultJWTSecret),
			ExpirationTime:   getEnvAsDuration("JWT_EXPIRATION", 30*24*time.Hour),
			CookieExpireDays: getEnvAsInt("JWT_COOKIE_EXPIRE", 30),
			SigningAlgorithm: getEnv("JWT_SIGNING_ALGORITHM", "HS256"),
		},
		RateLimit: RateLimitConfig{
			Request:  getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 100),
			Duration: getEnvAsInt("RATE_LIMIT_DURATION", 600),
		},
		Query: QueryConfig{
			MaxLimit:       getEnvAsInt("QUERY_MAX_LIMIT", 100),
			MultiValueKeys: getEnvAsSlice("QUERY_MULTI_VALUE_KEYS", nil),
		},
		Upload: UploadConfig{
			Path:        getEnv("FILE_UPLOAD_PATH", "./public/uploads"),
			MaxFileSize: int64(getEnvAsInt("MAX_FILE_UPLOAD", 1000000)),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsDuration("CORS_MAX_AGE", 12*time.Hour),
		},
		Mail: MailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_EMAIL", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("FROM_EMAIL", "noreply@devcamper.io"),
			FromName:  getEnv("FROM_NAME", "DevCamper"),
		},
		Geocoder: GeocoderConfig{
			URL:              getEnv("GEOCODER_URL", ""),
			APIKey:           getEnv("GEOCODER_API_KEY", ""),
			Timeout:          getEnvAsDuration("GEOCODER_TIMEOUT", 5*time.Second),
			CacheTTL:         getEnvAsDuration("GEOCODER_CACHE_TTL", 24*time.Hour),
			BreakerThreshold: getEnvAsInt("GEOCODER_BREAKER_THRESHOLD", 5),
			BreakerTimeout:   getEnvAsDuration("GEOCODER_BREAKER_TIMEOUT", 30*time.Second),
		},
		Seed: SeedConfig{
			Enabled:       getEnvAsBool("SEED_ADMIN", true),
			AdminName:     getEnv("SEED_ADMIN_NAME", "Admin"),
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@devcamper.io"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", "123456"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings that are unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWT.ExpirationTime <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION must be positive"))
	}
	if c.RateLimit.Request <= 0 || c.RateLimit.Duration <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUEST and RATE_LIMIT_DURATION must be positive"))
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_UPLOAD must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == constants.EnvProduction
}

// CookieMaxAge is the token cookie lifetime.
func (c *Config) CookieMaxAge() time.Duration {
	return time.Duration(c.JWT.CookieExpireDays) * 24 * time.Hour
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
