package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/qubitlabs/concierge/internal/contact"
)

// PlaceholderAPIKey is the value shipped in example configs. A key left at this
// value is treated the same as a missing key.
const PlaceholderAPIKey = "your_api_key_here"

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Contact ContactConfig `mapstructure:"contact"`
	Log     LogConfig     `mapstructure:"log"`
}

// LLMConfig holds the generative-AI provider configuration
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the bound applied to a single provider call.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig holds the HTTP host configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// StorageConfig holds the conversation store configuration
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ContactConfig overrides the built-in contact channels when set.
type ContactConfig struct {
	SchedulingURL  string `mapstructure:"scheduling_url"`
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	Email          string `mapstructure:"email"`
}

// Card resolves the effective contact channels, falling back to the defaults.
func (c ContactConfig) Card() contact.Card {
	card := contact.Default()
	if c.SchedulingURL != "" {
		card.SchedulingURL = c.SchedulingURL
	}
	if c.WhatsAppNumber != "" {
		card.WhatsAppNumber = c.WhatsAppNumber
	}
	if c.Email != "" {
		card.Email = c.Email
	}
	return card
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from config.yaml in the working directory, or
// from the file named by the CONFIG_PATH environment variable.
func Load() (*Config, error) {
	v := viper.New()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout_seconds", 20)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.path", "conversations.db")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
