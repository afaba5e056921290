package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"database"`
	Reports struct {
		TTL        time.Duration `yaml:"ttl"`
		DailyCron  string        `yaml:"daily_cron"`
		WeeklyCron string        `yaml:"weekly_cron"`
	} `yaml:"reports"`
}

func defaults() *Config {
	cfg := &Config{
		Env:      "development",
		LogLevel: "info",
		Timezone: "UTC",
	}
	cfg.Server.Port = "8080"
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Path = "data/tempo.db"
	cfg.Reports.TTL = 60 * time.Second
	cfg.Reports.DailyCron = "0 21 * * *"
	cfg.Reports.WeeklyCron = "0 20 * * 0"
	return cfg
}

// Load читает YAML-файл из CONFIG_FILE (если задан), затем применяет переменные окружения.
func Load() (*Config, error) {
	cfg := defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.Telegram.Token = getEnv("TG_TOKEN", c.Telegram.Token)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Reports.DailyCron = getEnv("DAILY_REPORT_CRON", c.Reports.DailyCron)
	c.Reports.WeeklyCron = getEnv("WEEKLY_REPORT_CRON", c.Reports.WeeklyCron)

	if chatIDStr := getEnv("TG_CHAT_ID", ""); chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TG_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = chatID
	}
	if ttlStr := getEnv("REPORT_TTL", ""); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return fmt.Errorf("invalid REPORT_TTL: %w", err)
		}
		c.Reports.TTL = ttl
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "sqlite" {
		return errors.New("DB_DRIVER must be one of: sqlite3, sqlite")
	}
	if c.Database.Path == "" {
		return errors.New("DB_PATH is required")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TG_CHAT_ID is required when TG_TOKEN is set")
	}
	if c.Reports.TTL < 0 {
		return errors.New("REPORT_TTL must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return nil
}

// BotEnabled is false when no Telegram token is configured.
func (c *Config) BotEnabled() bool {
	return c.Telegram.Token != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
