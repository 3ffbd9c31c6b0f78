package config

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Quota    QuotaConfig    `yaml:"quota"`
	Storage  StorageConfig  `yaml:"storage"`
	Voices   VoicesConfig   `yaml:"voices"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`
}

type ProviderConfig struct {
	Model   string   `yaml:"model"`
	Timeout int      `yaml:"timeout"`
	APIKeys []string `yaml:"api_keys"`
}

type QuotaConfig struct {
	Timezone         string `yaml:"timezone"`
	PreviewPrincipal string `yaml:"preview_principal"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

type VoicesConfig struct {
	Default string       `yaml:"default"`
	Routes  []VoiceRoute `yaml:"routes"`
}

type VoiceRoute struct {
	Pattern string `yaml:"pattern"`
	Target  string `yaml:"target"`
}

var (
	cfg  *Config
	once sync.Once
)

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8046,
			Host:     "0.0.0.0",
			LogLevel: "info",
		},
		Provider: ProviderConfig{
			Model:   "gemini-2.5-flash-preview-tts",
			Timeout: 120,
		},
		Quota: QuotaConfig{
			Timezone:         "Asia/Seoul",
			PreviewPrincipal: "preview",
		},
		Storage: StorageConfig{
			DBPath: "./data/voxgate.db",
		},
		Voices: VoicesConfig{
			Default: "Kore",
			Routes: []VoiceRoute{
				{Pattern: "warm-*", Target: "Sulafat"},
				{Pattern: "bright-*", Target: "Zephyr"},
				{Pattern: "narrator", Target: "Charon"},
				{Pattern: "upbeat", Target: "Puck"},
			},
		},
	}
}

// Load loads configuration from file, then applies environment overrides.
// VOXGATE_API_KEYS (comma-separated) replaces the configured key pool.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		cfg = DefaultConfig()

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				// Create default config file
				err = Save(path, cfg)
				applyEnv(cfg)
				return
			}
			err = readErr
			return
		}

		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			err = unmarshalErr
			return
		}
		applyEnv(cfg)
	})

	return cfg, err
}

func applyEnv(c *Config) {
	if keys := os.Getenv("VOXGATE_API_KEYS"); keys != "" {
		c.Provider.APIKeys = nil
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Provider.APIKeys = append(c.Provider.APIKeys, k)
			}
		}
	}
}

// Save saves configuration to file
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return cfg
}
