// Package config handles finsight configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all finsight configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Encryption EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`
	// Default is the process-wide provider used when a user has no
	// configs of their own. Synthesized fresh per call, never persisted.
	Default DefaultProvider `yaml:"default_provider" mapstructure:"default_provider"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EncryptionConfig keys the credential cipher.
type EncryptionConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// DefaultProvider describes the shared fallback backend.
type DefaultProvider struct {
	Kind    string `yaml:"kind" mapstructure:"kind"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// DefaultConfig returns the default configuration: a local Ollama
// backend, so the tool works out of the box without any API key.
func DefaultConfig() *Config {
	return &Config{
		Server:     ServerConfig{Addr: ":8084"},
		Database:   DatabaseConfig{Path: "finsight.db"},
		Encryption: EncryptionConfig{Key: ""},
		Default: DefaultProvider{
			Kind:    "ollama",
			Model:   "qwen2.5:7b",
			BaseURL: "http://localhost:11434",
		},
	}
}

// Load reads configuration from the given file, applying FINSIGHT_*
// environment overrides on top.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return unmarshal(v)
}

// LoadFromPaths tries each path in order, returning the first that
// exists; when none does, defaults (plus env overrides) apply.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		fallback := filepath.Join(home, ".finsight", "config.yaml")
		if _, err := os.Stat(fallback); err == nil {
			return Load(fallback)
		}
	}

	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("encryption.key", def.Encryption.Key)
	v.SetDefault("default_provider.kind", def.Default.Kind)
	v.SetDefault("default_provider.model", def.Default.Model)
	v.SetDefault("default_provider.base_url", def.Default.BaseURL)
	v.SetDefault("default_provider.api_key", def.Default.APIKey)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
