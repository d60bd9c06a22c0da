package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"contextimage/internal/database"
	"contextimage/internal/utils"
)

const (
	BackendModeProxy  = "proxy"
	BackendModeDirect = "direct"
)

// Config is the application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Host     HostConfig     `mapstructure:"host"`
	GenAI    GenAIConfig    `mapstructure:"genai"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BackendConfig describes how generation requests leave the process.
type BackendConfig struct {
	Mode         string `mapstructure:"mode"`
	BaseURL      string `mapstructure:"base_url"`
	CSRFToken    string `mapstructure:"csrf_token"`
	Cookie       string `mapstructure:"cookie"`
	ReverseProxy string `mapstructure:"reverse_proxy"`
}

// HostConfig points at the chat state on disk.
type HostConfig struct {
	ChatFile      string `mapstructure:"chat_file"`
	CharacterFile string `mapstructure:"character_file"`
	UserName      string `mapstructure:"user_name"`
	UserAvatar    string `mapstructure:"user_avatar"`
	Persona       string `mapstructure:"persona"`
	ImagesDir     string `mapstructure:"images_dir"`
}

// GenAIConfig is used in direct mode. An empty APIKey falls back to the
// keyring.
type GenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "")
	v.SetDefault("database.path", database.GetDefaultDBPath())
	v.SetDefault("backend.mode", BackendModeProxy)
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.csrf_token", "")
	v.SetDefault("backend.cookie", "")
	v.SetDefault("backend.reverse_proxy", "")
	v.SetDefault("host.chat_file", "")
	v.SetDefault("host.character_file", "")
	v.SetDefault("host.user_name", "")
	v.SetDefault("host.user_avatar", "user-default.png")
	v.SetDefault("host.persona", "")
	v.SetDefault("host.images_dir", filepath.Join("user", "images"))
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.base_url", "")
}

// Load reads configuration from path, or from the default search paths when
// path is empty. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if dir, err := utils.ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("CIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks enumerated values and mode-dependent requirements.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	switch c.Backend.Mode {
	case BackendModeProxy:
		if strings.TrimSpace(c.Backend.BaseURL) == "" {
			return fmt.Errorf("backend.base_url is required in proxy mode")
		}
	case BackendModeDirect:
	default:
		return fmt.Errorf("invalid backend mode: %s, must be 'proxy' or 'direct'", c.Backend.Mode)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
