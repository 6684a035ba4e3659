package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Email    EmailConfig    `mapstructure:"email"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpireMins int    `mapstructure:"access_expire_minutes"`
	ResetExpireHours int    `mapstructure:"reset_expire_hours"`
}

type BookingConfig struct {
	// GracePeriodMins bounds how long a reservation may stay unconfirmed.
	GracePeriodMins int `mapstructure:"confirmation_grace_period_minutes"`
	// MinLeadHours is the minimum notice a reservation needs.
	MinLeadHours int `mapstructure:"min_lead_hours"`
	// AllowProviderCancelConfirmed gates provider-initiated cancellation
	// of already-confirmed appointments.
	AllowProviderCancelConfirmed bool `mapstructure:"allow_provider_cancel_confirmed"`
}

type CacheConfig struct {
	ExpirySeconds int           `mapstructure:"expiry_seconds"`
	OpTimeout     time.Duration `mapstructure:"op_timeout"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// GracePeriod returns the confirmation grace period as a duration.
func (b BookingConfig) GracePeriod() time.Duration {
	return time.Duration(b.GracePeriodMins) * time.Minute
}

// MinLead returns the minimum reservation notice as a duration.
func (b BookingConfig) MinLead() time.Duration {
	return time.Duration(b.MinLeadHours) * time.Hour
}

// TTL returns the cache entry expiry as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.ExpirySeconds) * time.Second
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	bindEnvOverrides()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults carry a full config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.max_header_bytes", 1<<20)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)

	viper.SetDefault("jwt.access_expire_minutes", 30)
	viper.SetDefault("jwt.reset_expire_hours", 1)

	viper.SetDefault("booking.confirmation_grace_period_minutes", 30)
	viper.SetDefault("booking.min_lead_hours", 24)
	viper.SetDefault("booking.allow_provider_cancel_confirmed", true)

	viper.SetDefault("cache.expiry_seconds", 3600)
	viper.SetDefault("cache.op_timeout", 250*time.Millisecond)
}

// bindEnvOverrides maps the externally documented environment variables
// onto config keys.
func bindEnvOverrides() {
	viper.BindEnv("jwt.access_expire_minutes", "ACCESS_TOKEN_EXPIRE_MINUTES")
	viper.BindEnv("booking.confirmation_grace_period_minutes", "CONFIRMATION_GRACE_PERIOD_MINUTES")
	viper.BindEnv("cache.expiry_seconds", "CACHE_EXPIRY_SECONDS")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
}
