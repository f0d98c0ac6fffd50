package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Stale struct {
		DefaultMinutes int `mapstructure:"defaultMinutes"` // Inactivity threshold when the scheduler omits one
		DefaultLimit   int `mapstructure:"defaultLimit"`   // Result cap when the scheduler omits one
		MaxLimit       int `mapstructure:"maxLimit"`       // Hard cap regardless of request
	} `mapstructure:"stale"`
	WorkerPools struct {
		ErrorSink ErrorSinkPoolConfig `mapstructure:"errorSink"`
	} `mapstructure:"workerPools"`
}

// ErrorSinkPoolConfig holds configuration for the pipeline-error worker pool
type ErrorSinkPoolConfig struct {
	PoolSize     int           `mapstructure:"poolSize"`     // Number of workers
	QueueSize    int           `mapstructure:"queueSize"`    // Task queue buffer size
	ExpiryTime   time.Duration `mapstructure:"expiryTime"`   // Idle worker expiry time
	WriteTimeout time.Duration `mapstructure:"writeTimeout"` // Per-task persistence deadline
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
	v.SetDefault("database.postgresAutoMigrate", true)

	// Stale scan defaults mirror the follow-up scheduler contract
	v.SetDefault("stale.defaultMinutes", 60)
	v.SetDefault("stale.defaultLimit", 30)
	v.SetDefault("stale.maxLimit", 100)

	// WorkerPools defaults
	v.SetDefault("workerPools.errorSink.poolSize", 4)
	v.SetDefault("workerPools.errorSink.queueSize", 1024)
	v.SetDefault("workerPools.errorSink.expiryTime", time.Minute)
	v.SetDefault("workerPools.errorSink.writeTimeout", 5*time.Second)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.crm-inbound-engine")
	v.AddConfigPath("/etc/crm-inbound-engine")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
