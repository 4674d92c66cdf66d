package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI     AIConfig    `yaml:"ai" validate:"required"`
	Paths  PathsConfig `yaml:"paths" validate:"required"`
	Limits Limits      `yaml:"limits" validate:"required"`
}

type AIConfig struct {
	APIKey  string `yaml:"api_key" validate:"required,min=20"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Timeout int    `yaml:"timeout" validate:"required,min=10,max=3600"`
}

type PathsConfig struct {
	DataDir string `yaml:"data_dir" validate:"required,dirpath"`
}

// Load reads the config file, falling back to a generated default when none
// exists. The API key always comes from the environment when the file holds
// the placeholder.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := getConfigPath()

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		cfg := defaultConfig()
		if saveErr := saveConfig(cfg, configPath); saveErr != nil {
			return nil, fmt.Errorf("creating config: %w", saveErr)
		}
		data, err = yamlBytes(cfg)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.AI.APIKey == "" || cfg.AI.APIKey == "${OPENAI_API_KEY}" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.AI.APIKey = apiKey
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	// 1. Explicit config path via environment variable
	if path := os.Getenv("NOVELIST_CONFIG"); path != "" {
		return path
	}

	// 2. XDG_CONFIG_HOME (XDG Base Directory Specification)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "novelist", "config.yaml")
	}

	// 3. Default to ~/.config/novelist/config.yaml (XDG fallback)
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "novelist", "config.yaml")
}

// expandTilde expands a tilde (~) at the beginning of a path to the user's home directory
func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "novelist")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "novelist")
}

func defaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			APIKey:  "${OPENAI_API_KEY}",
			Model:   "gpt-4o",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 120,
		},
		Paths: PathsConfig{
			DataDir: defaultDataDir(),
		},
		Limits: DefaultLimits(),
	}
}

func (c *Config) validate() error {
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = defaultDataDir()
	} else {
		c.Paths.DataDir = expandTilde(c.Paths.DataDir)
	}

	if c.Limits.MaxRevisionTurns == 0 {
		c.Limits = DefaultLimits()
	}

	validate := validator.New()

	// The data directory is created on first write; existence is not a
	// validation concern.
	validate.RegisterValidation("dirpath", func(fl validator.FieldLevel) bool {
		return fl.Field().String() != ""
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

func yamlBytes(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

func saveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The saved file always carries the env placeholder, never a real key.
	cfgToSave := *cfg
	cfgToSave.AI.APIKey = "${OPENAI_API_KEY}"

	data, err := yamlBytes(&cfgToSave)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}
