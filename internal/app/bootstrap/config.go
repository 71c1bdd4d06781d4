package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the courier service.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopics  []string
	PollBatch    int

	DirectoryURL     string
	DirectoryTimeout time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PushEndpoint  string
	PushServerKey string

	S3Region   string
	S3Bucket   string
	S3Endpoint string

	CredentialKey string

	EnabledChannels []string

	MaxConcurrentSends int
	SendTimeout        time.Duration
	MaxConcurrentSyncs int
	SyncLockTTL        time.Duration
	SyncInterval       time.Duration
	EventDedupTTL      time.Duration
	DedupSweepInterval time.Duration
	BlacklistCacheTTL  time.Duration

	IMAPDialTimeout    time.Duration
	IMAPCommandTimeout time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaGroupID string   `yaml:"kafka_group_id"`
		KafkaTopics  []string `yaml:"kafka_topics"`
		DirectoryURL string   `yaml:"directory_url"`
	} `yaml:"dependencies"`
	Channels struct {
		Enabled []string `yaml:"enabled"`
	} `yaml:"channels"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Push struct {
		Endpoint  string `yaml:"endpoint"`
		ServerKey string `yaml:"server_key"`
	} `yaml:"push"`
	Storage struct {
		Region   string `yaml:"region"`
		Bucket   string `yaml:"bucket"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"storage"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "courier",
		HTTPPort:           8080,
		GRPCPort:           9090,
		MaxDBConns:         20,
		KafkaGroupID:       "courier",
		KafkaTopics:        []string{"seido.events"},
		PollBatch:          32,
		DirectoryTimeout:   5 * time.Second,
		EnabledChannels:    []string{"in_app", "email", "push"},
		MaxConcurrentSends: 8,
		SendTimeout:        15 * time.Second,
		MaxConcurrentSyncs: 4,
		SyncLockTTL:        5 * time.Minute,
		SyncInterval:       5 * time.Minute,
		EventDedupTTL:      7 * 24 * time.Hour,
		DedupSweepInterval: time.Hour,
		BlacklistCacheTTL:  10 * time.Minute,
		IMAPDialTimeout:    15 * time.Second,
		IMAPCommandTimeout: 60 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaGroupID != "" {
			cfg.KafkaGroupID = f.Dependencies.KafkaGroupID
		}
		if len(f.Dependencies.KafkaTopics) > 0 {
			cfg.KafkaTopics = f.Dependencies.KafkaTopics
		}
		if f.Dependencies.DirectoryURL != "" {
			cfg.DirectoryURL = f.Dependencies.DirectoryURL
		}
		if len(f.Channels.Enabled) > 0 {
			cfg.EnabledChannels = f.Channels.Enabled
		}
		if f.SMTP.Host != "" {
			cfg.SMTPHost = f.SMTP.Host
		}
		if f.SMTP.Port != "" {
			cfg.SMTPPort = f.SMTP.Port
		}
		if f.SMTP.Username != "" {
			cfg.SMTPUsername = f.SMTP.Username
		}
		if f.SMTP.Password != "" {
			cfg.SMTPPassword = f.SMTP.Password
		}
		if f.SMTP.From != "" {
			cfg.SMTPFrom = f.SMTP.From
		}
		if f.Push.Endpoint != "" {
			cfg.PushEndpoint = f.Push.Endpoint
		}
		if f.Push.ServerKey != "" {
			cfg.PushServerKey = f.Push.ServerKey
		}
		if f.Storage.Region != "" {
			cfg.S3Region = f.Storage.Region
		}
		if f.Storage.Bucket != "" {
			cfg.S3Bucket = f.Storage.Bucket
		}
		if f.Storage.Endpoint != "" {
			cfg.S3Endpoint = f.Storage.Endpoint
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaGroupID = envOrDefault("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.KafkaTopics = envCSV("KAFKA_TOPICS", cfg.KafkaTopics)
	cfg.DirectoryURL = envOrDefault("DIRECTORY_URL", cfg.DirectoryURL)
	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envOrDefault("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)
	cfg.PushEndpoint = envOrDefault("PUSH_ENDPOINT", cfg.PushEndpoint)
	cfg.PushServerKey = envOrDefault("PUSH_SERVER_KEY", cfg.PushServerKey)
	cfg.S3Region = envOrDefault("S3_REGION", cfg.S3Region)
	cfg.S3Bucket = envOrDefault("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Endpoint = envOrDefault("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.CredentialKey = envOrDefault("CREDENTIAL_KEY", cfg.CredentialKey)
	cfg.EnabledChannels = envCSV("ENABLED_CHANNELS", cfg.EnabledChannels)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.PollBatch = envInt("KAFKA_POLL_BATCH", cfg.PollBatch)
	cfg.MaxConcurrentSends = envInt("MAX_CONCURRENT_SENDS", cfg.MaxConcurrentSends)
	cfg.MaxConcurrentSyncs = envInt("MAX_CONCURRENT_SYNCS", cfg.MaxConcurrentSyncs)

	cfg.DirectoryTimeout = time.Duration(envInt("DIRECTORY_TIMEOUT_SECONDS", int(cfg.DirectoryTimeout.Seconds()))) * time.Second
	cfg.SendTimeout = time.Duration(envInt("SEND_TIMEOUT_SECONDS", int(cfg.SendTimeout.Seconds()))) * time.Second
	cfg.SyncLockTTL = time.Duration(envInt("SYNC_LOCK_TTL_SECONDS", int(cfg.SyncLockTTL.Seconds()))) * time.Second
	cfg.SyncInterval = time.Duration(envInt("SYNC_INTERVAL_SECONDS", int(cfg.SyncInterval.Seconds()))) * time.Second
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.DedupSweepInterval = time.Duration(envInt("DEDUP_SWEEP_INTERVAL_MINUTES", int(cfg.DedupSweepInterval.Minutes()))) * time.Minute
	cfg.BlacklistCacheTTL = time.Duration(envInt("BLACKLIST_CACHE_TTL_SECONDS", int(cfg.BlacklistCacheTTL.Seconds()))) * time.Second
	cfg.IMAPDialTimeout = time.Duration(envInt("IMAP_DIAL_TIMEOUT_SECONDS", int(cfg.IMAPDialTimeout.Seconds()))) * time.Second
	cfg.IMAPCommandTimeout = time.Duration(envInt("IMAP_COMMAND_TIMEOUT_SECONDS", int(cfg.IMAPCommandTimeout.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.CredentialKey == "" {
		return Config{}, fmt.Errorf("missing CREDENTIAL_KEY")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
