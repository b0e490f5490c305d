package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Bind      string           `json:"bind"`
	CORSAllow []string         `json:"cors_allow"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	Auth      AuthConfig       `json:"auth"`
	Chunking  ChunkingConfig   `json:"chunking"`
	FileStore FileStoreConfig  `json:"file_store"`
	Jobs      JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AuthConfig struct {
	TokenSecret      string `json:"token_secret"`
	APIKeyHash       string `json:"api_key_hash"`
	TokenTTLHours    int    `json:"token_ttl_hours"`
	RateLimitSeconds int    `json:"rate_limit_seconds"`
}

type ChunkingConfig struct {
	BaseChunkSize      int     `json:"base_chunk_size"`
	MaxLevels          int     `json:"max_levels"`
	OverlapPercentage  float64 `json:"overlap_percentage"`
	MinOverlapChars    int     `json:"min_overlap_chars"`
	MaxOverlapChars    int     `json:"max_overlap_chars"`
	SplitCacheSize     int     `json:"split_cache_size"`
	SplitCacheTTLMin   int     `json:"split_cache_ttl_minutes"`
	EnableDBSplitCache bool    `json:"enable_db_split_cache"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	RunRetentionDays        int    `json:"run_retention_days"`
	RunRetentionCron        string `json:"run_retention_cron"`
	SentenceCacheMaxAgeDays int    `json:"sentence_cache_max_age_days"`
	SentenceCacheCron       string `json:"sentence_cache_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Bind == "" {
		return nil, fmt.Errorf("bind is required")
	}
	if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "") {
		return nil, fmt.Errorf("database.dsn or database.host/db_name is required")
	}
	if cfg.Auth.TokenSecret == "" {
		return nil, fmt.Errorf("auth.token_secret is required")
	}
	if cfg.Auth.APIKeyHash == "" {
		return nil, fmt.Errorf("auth.api_key_hash is required")
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Auth.RateLimitSeconds == 0 {
		cfg.Auth.RateLimitSeconds = 1
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	applyChunkingDefaults(&cfg.Chunking)
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./archive"}
	}
	if cfg.Jobs.RunRetentionDays == 0 {
		cfg.Jobs.RunRetentionDays = 30
	}
	if cfg.Jobs.RunRetentionCron == "" {
		cfg.Jobs.RunRetentionCron = "0 3 * * *"
	}
	if cfg.Jobs.SentenceCacheMaxAgeDays == 0 {
		cfg.Jobs.SentenceCacheMaxAgeDays = 14
	}
	if cfg.Jobs.SentenceCacheCron == "" {
		cfg.Jobs.SentenceCacheCron = "30 3 * * *"
	}
	return &cfg, nil
}

func DefaultChunking() ChunkingConfig {
	var cfg ChunkingConfig
	applyChunkingDefaults(&cfg)
	return cfg
}

func applyChunkingDefaults(cfg *ChunkingConfig) {
	if cfg.BaseChunkSize <= 0 {
		cfg.BaseChunkSize = 1000
	}
	if cfg.MaxLevels <= 0 {
		cfg.MaxLevels = 3
	}
	if cfg.OverlapPercentage <= 0 {
		cfg.OverlapPercentage = 0.15
	}
	if cfg.MinOverlapChars <= 0 {
		cfg.MinOverlapChars = 50
	}
	if cfg.MaxOverlapChars <= 0 {
		cfg.MaxOverlapChars = 200
	}
	if cfg.SplitCacheSize <= 0 {
		cfg.SplitCacheSize = 256
	}
	if cfg.SplitCacheTTLMin <= 0 {
		cfg.SplitCacheTTLMin = 60
	}
}
