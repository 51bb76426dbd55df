package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Chain       ChainConfig
	Reconciler  ReconcilerConfig
	AWS         AWSConfig
	ContractAPI ContractAPIConfig
	Notify      NotifyConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
	// Per caller budget for the publish endpoints
	RateLimitRequests      int
	RateLimitWindowSeconds int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	ConnectAttempts int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// StorageConfig configures the content-addressed publishing backends.
type StorageConfig struct {
	DefaultProvider      string
	IPFSAPIURL           string
	LighthouseAPIURL     string
	LighthouseGatewayURL string
	LighthouseToken      string
	TimeoutSeconds       int
	TempDir              string
}

type ChainConfig struct {
	RPCURL string
}

type ReconcilerConfig struct {
	Enabled bool
	Cron    string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type ContractAPIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type NotifyConfig struct {
	SlackWebhookURL string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSeconds) * time.Second
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *StorageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (c *ContractAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SERVER_RATE_LIMIT_REQUESTS", 30)
	v.SetDefault("SERVER_RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "publisher")
	v.SetDefault("DATABASE_PASSWORD", "publisher_secret")
	v.SetDefault("DATABASE_NAME", "publisher")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_CONNECT_ATTEMPTS", 5)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("STORAGE_DEFAULT_PROVIDER", "ipfs")
	v.SetDefault("STORAGE_IPFS_API_URL", "http://localhost:5001")
	v.SetDefault("STORAGE_LIGHTHOUSE_API_URL", "https://node.lighthouse.storage")
	v.SetDefault("STORAGE_LIGHTHOUSE_GATEWAY_URL", "https://gateway.lighthouse.storage")
	v.SetDefault("STORAGE_TIMEOUT_SECONDS", 60)
	v.SetDefault("CHAIN_RPC_URL", "http://localhost:8545")
	v.SetDefault("RECONCILER_ENABLED", true)
	v.SetDefault("RECONCILER_CRON", "*/5 * * * *")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("CONTRACT_API_TIMEOUT_SECONDS", 10)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),

			RateLimitRequests:      v.GetInt("SERVER_RATE_LIMIT_REQUESTS"),
			RateLimitWindowSeconds: v.GetInt("SERVER_RATE_LIMIT_WINDOW_SECONDS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			ConnectAttempts: v.GetInt("DATABASE_CONNECT_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Storage: StorageConfig{
			DefaultProvider:      v.GetString("STORAGE_DEFAULT_PROVIDER"),
			IPFSAPIURL:           v.GetString("STORAGE_IPFS_API_URL"),
			LighthouseAPIURL:     v.GetString("STORAGE_LIGHTHOUSE_API_URL"),
			LighthouseGatewayURL: v.GetString("STORAGE_LIGHTHOUSE_GATEWAY_URL"),
			LighthouseToken:      v.GetString("STORAGE_LIGHTHOUSE_TOKEN"),
			TimeoutSeconds:       v.GetInt("STORAGE_TIMEOUT_SECONDS"),
			TempDir:              v.GetString("STORAGE_TEMP_DIR"),
		},
		Chain: ChainConfig{
			RPCURL: v.GetString("CHAIN_RPC_URL"),
		},
		Reconciler: ReconcilerConfig{
			Enabled: v.GetBool("RECONCILER_ENABLED"),
			Cron:    v.GetString("RECONCILER_CRON"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("AWS_REGION"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        v.GetString("AWS_ENDPOINT"),
		},
		ContractAPI: ContractAPIConfig{
			BaseURL:        v.GetString("CONTRACT_API_BASE_URL"),
			TimeoutSeconds: v.GetInt("CONTRACT_API_TIMEOUT_SECONDS"),
		},
		Notify: NotifyConfig{
			SlackWebhookURL: v.GetString("NOTIFY_SLACK_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// splitList parses a comma separated env value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
