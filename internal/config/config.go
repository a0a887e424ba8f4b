package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Archive   ArchiveConfig   `yaml:"archive"`
	LLM       LLMConfig       `yaml:"llm"`
	Timesheet TimesheetConfig `yaml:"timesheet"`
	AutoStop  AutoStopConfig  `yaml:"auto_stop"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Mode selects the transport: "http" (REST API) or "stdio" (MCP tools).
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig configures the embedded document store holding
// closed-session projections.
type ArchiveConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// LLMConfig configures the language-model collaborator.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	APIKey         string `yaml:"api_key"`
}

// TimesheetConfig configures the external timesheet API.
type TimesheetConfig struct {
	URL  string `yaml:"url"`
	GUID string `yaml:"guid"`
}

// AutoStopConfig configures the stale-session reconciliation job.
type AutoStopConfig struct {
	// Hour and Minute set the daily trigger time.
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
	// FallbackSeconds is the duration written onto force-closed logs.
	FallbackSeconds int64 `yaml:"fallback_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "http",
		},
		DB: DBConfig{
			Path: "worklog.db",
		},
		Archive: ArchiveConfig{
			Path:       "worklog-archive",
			Collection: "session_archive",
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		AutoStop: AutoStopConfig{
			Hour:            12,
			Minute:          55,
			FallbackSeconds: 10800,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("WORKLOG_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("WORKLOG_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("WORKLOG_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WORKLOG_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("WORKLOG_SERVER_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if dbPath := os.Getenv("WORKLOG_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if archivePath := os.Getenv("WORKLOG_ARCHIVE_PATH"); archivePath != "" {
		cfg.Archive.Path = archivePath
	}
	if apiKey := os.Getenv("WORKLOG_LLM_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if url := os.Getenv("WORKLOG_TIMESHEET_URL"); url != "" {
		cfg.Timesheet.URL = url
	}
	if guid := os.Getenv("WORKLOG_TIMESHEET_GUID"); guid != "" {
		cfg.Timesheet.GUID = guid
	}
	if secsStr := os.Getenv("WORKLOG_AUTO_STOP_SECONDS"); secsStr != "" {
		secs, err := strconv.ParseInt(secsStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WORKLOG_AUTO_STOP_SECONDS: %w", err)
		}
		cfg.AutoStop.FallbackSeconds = secs
	}
	if level := os.Getenv("WORKLOG_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
