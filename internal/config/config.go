package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	// Storage.
	DatabaseDSN    string `mapstructure:"DATABASE_DSN"`
	UseMemoryStore bool   `mapstructure:"USE_MEMORY_STORE"`

	// Redis: cache DB backs the tenant directory, queue DB backs asynq.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Twilio WhatsApp credentials.
	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`

	// Dialogue tuning.
	AvailabilityDays     int `mapstructure:"AVAILABILITY_DAYS"`
	SessionRetentionDays int `mapstructure:"SESSION_RETENTION_DAYS"`
	TenantCacheTTLSec    int `mapstructure:"TENANT_CACHE_TTL_SEC"`
	WorkerConcurrency    int `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

// LoadConfig reads config.yaml (current dir or ./config) when present and
// falls back to environment variables for everything else.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("USE_MEMORY_STORE", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("TWILIO_ACCOUNT_SID", "")
	viper.SetDefault("TWILIO_AUTH_TOKEN", "")
	viper.SetDefault("TWILIO_WHATSAPP_FROM", "")
	viper.SetDefault("AVAILABILITY_DAYS", 7)
	viper.SetDefault("SESSION_RETENTION_DAYS", 30)
	viper.SetDefault("TENANT_CACHE_TTL_SEC", 60)
	viper.SetDefault("WORKER_CONCURRENCY", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
