package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	NAS struct {
		Protocol       string `mapstructure:"protocol"`
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		Username       string `mapstructure:"username"`
		Password       string `mapstructure:"password"`
		DriveMappings  string `mapstructure:"drive_mappings"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
		MoveRetries    int    `mapstructure:"move_retries"`
		MoveBackoffMS  int    `mapstructure:"move_backoff_ms"`
		SessionTTLMin  int    `mapstructure:"session_ttl_minutes"`
	} `mapstructure:"nas"`

	// Secrets is an S3-compatible bucket holding secrets for disaster recovery
	Secrets struct {
		Endpoint  string `mapstructure:"endpoint"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Region    string `mapstructure:"region"`
	} `mapstructure:"secrets"`
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

// RedisAddr returns host:port of Redis
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) NASTimeout() time.Duration {
	return time.Duration(c.NAS.TimeoutSeconds) * time.Second
}

func (c *Config) MoveBackoff() time.Duration {
	return time.Duration(c.NAS.MoveBackoffMS) * time.Millisecond
}

func (c *Config) NASSessionTTL() time.Duration {
	return time.Duration(c.NAS.SessionTTLMin) * time.Minute
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnvOverrides(&cfg)
	clampNAS(&cfg)

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			// Try to fetch from secrets bucket (disaster recovery)
			log.Printf("[Config] JWT_SECRET not set, fetching from secrets bucket...")
			cfg.JWT.Secret = fetchSecret(&cfg, jwtSecretKey)
			if cfg.JWT.Secret == "" {
				log.Fatal("JWT_SECRET not found in environment or secrets bucket")
			}
			log.Printf("[Config] JWT secret loaded from secrets bucket")
		}
	}

	if cfg.NAS.Host != "" && cfg.NAS.Password == "" {
		log.Printf("[Config] NAS password not set, fetching from secrets bucket...")
		cfg.NAS.Password = fetchSecret(&cfg, nasPasswordKey)
		if cfg.NAS.Password == "" {
			log.Printf("[Config] Warning: NAS password unavailable, NAS login will fail")
		}
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "jobflow-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "jobflow_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("nas.protocol", "http")
	v.SetDefault("nas.port", 8080)
	v.SetDefault("nas.drive_mappings", "P:Production")
	v.SetDefault("nas.timeout_seconds", 30)
	v.SetDefault("nas.move_retries", 2)
	v.SetDefault("nas.move_backoff_ms", 500)
	v.SetDefault("nas.session_ttl_minutes", 720)
	v.SetDefault("secrets.region", "auto")
}

// clampNAS keeps NAS tuning values usable whatever the YAML or env says
func clampNAS(cfg *Config) {
	if cfg.NAS.MoveRetries < 0 {
		log.Printf("[Config] nas.move_retries %d is negative, using 0", cfg.NAS.MoveRetries)
		cfg.NAS.MoveRetries = 0
	}
	if cfg.NAS.MoveBackoffMS < 0 {
		cfg.NAS.MoveBackoffMS = 0
	}
	if cfg.NAS.TimeoutSeconds <= 0 {
		cfg.NAS.TimeoutSeconds = 30
	}
	if cfg.NAS.SessionTTLMin <= 0 {
		cfg.NAS.SessionTTLMin = 720
	}
}

// applyEnvOverrides maps the deployment's flat env variables onto cfg
func applyEnvOverrides(cfg *Config) {
	setString := func(env string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}
	setInt := func(env string, dst *int) {
		if val := os.Getenv(env); val != "" {
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				*dst = n
			}
		}
	}

	setString("DB_HOST", &cfg.Database.Host)
	setInt("DB_PORT", &cfg.Database.Port)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PASSWORD", &cfg.Database.Password)
	setString("DB_NAME", &cfg.Database.Name)
	setString("DB_SSLMODE", &cfg.Database.SSLMode)

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	setString("REDIS_SERVICE_HOST", &cfg.Redis.Host)
	setInt("REDIS_SERVICE_PORT", &cfg.Redis.Port)
	setString("REDIS_HOST", &cfg.Redis.Host)
	setInt("REDIS_PORT", &cfg.Redis.Port)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("REDIS_DB", &cfg.Redis.DB)

	setString("NAS_PROTOCOL", &cfg.NAS.Protocol)
	setString("NAS_HOST", &cfg.NAS.Host)
	setInt("NAS_PORT", &cfg.NAS.Port)
	setString("NAS_USERNAME", &cfg.NAS.Username)
	setString("NAS_PASSWORD", &cfg.NAS.Password)
	setString("DRIVE_MAPPINGS", &cfg.NAS.DriveMappings)
	setInt("NAS_TIMEOUT_SECONDS", &cfg.NAS.TimeoutSeconds)
	setInt("NAS_MOVE_RETRIES", &cfg.NAS.MoveRetries)
	setInt("NAS_MOVE_BACKOFF_MS", &cfg.NAS.MoveBackoffMS)

	setString("SECRETS_ENDPOINT", &cfg.Secrets.Endpoint)
	setString("SECRETS_BUCKET", &cfg.Secrets.Bucket)
	setString("SECRETS_ACCESS_KEY", &cfg.Secrets.AccessKey)
	setString("SECRETS_SECRET_KEY", &cfg.Secrets.SecretKey)
	setString("SECRETS_REGION", &cfg.Secrets.Region)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.CorsAllowedOrigins = strings.Split(origins, ",")
	}
}
