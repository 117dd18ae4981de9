// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ClientConfig struct {
	BackendURL   string `yaml:"backend_url"`
	SingleFlight *bool  `yaml:"single_flight,omitempty"`
	CopyToastMS  int    `yaml:"copy_toast_ms"`
	LogFile      string `yaml:"log_file,omitempty"`
	ExportDir    string `yaml:"export_dir,omitempty"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	DBPath         string   `yaml:"db_path,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type OpenRouterConfig struct {
	APIKey         string `yaml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url"`
	Referer        string `yaml:"referer"`
	Title          string `yaml:"title"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryDelay     int    `yaml:"retry_delay"`      // milliseconds
	RequestTimeout int    `yaml:"request_timeout"`  // seconds
	ModelsCacheTTL int    `yaml:"models_cache_ttl"` // seconds
	RedisURL       string `yaml:"redis_url,omitempty"`
}

type EventsConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Server     ServerConfig     `yaml:"server"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Events     EventsConfig     `yaml:"events"`
}

// Load reads the config from the default location
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path. A missing file yields defaults. A .env
// file in the working directory is loaded first so it can feed ${VARS}.
func LoadFrom(path string) (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		cfg := defaultConfig()
		applyEnv(cfg)
		return cfg, nil
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Client.BackendURL = "http://127.0.0.1:8000"
	cfg.Client.SingleFlight = boolPtr(true)
	cfg.Client.CopyToastMS = 2000
	cfg.Server.Addr = "127.0.0.1:8000"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	cfg.OpenRouter.Referer = "http://localhost:5173"
	cfg.OpenRouter.Title = "Madlen AI"
	cfg.OpenRouter.RetryAttempts = 3
	cfg.OpenRouter.RetryDelay = 1000 // 1 second
	cfg.OpenRouter.RequestTimeout = 120
	cfg.OpenRouter.ModelsCacheTTL = 300
	return cfg
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.Client.BackendURL == "" {
		cfg.Client.BackendURL = def.Client.BackendURL
	}
	if cfg.Client.SingleFlight == nil {
		cfg.Client.SingleFlight = def.Client.SingleFlight
	}
	if cfg.Client.CopyToastMS == 0 {
		cfg.Client.CopyToastMS = def.Client.CopyToastMS
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = def.OpenRouter.BaseURL
	}
	if cfg.OpenRouter.Referer == "" {
		cfg.OpenRouter.Referer = def.OpenRouter.Referer
	}
	if cfg.OpenRouter.Title == "" {
		cfg.OpenRouter.Title = def.OpenRouter.Title
	}
	if cfg.OpenRouter.RetryAttempts == 0 {
		cfg.OpenRouter.RetryAttempts = def.OpenRouter.RetryAttempts
	}
	if cfg.OpenRouter.RetryDelay == 0 {
		cfg.OpenRouter.RetryDelay = def.OpenRouter.RetryDelay
	}
	if cfg.OpenRouter.RequestTimeout == 0 {
		cfg.OpenRouter.RequestTimeout = def.OpenRouter.RequestTimeout
	}
	if cfg.OpenRouter.ModelsCacheTTL == 0 {
		cfg.OpenRouter.ModelsCacheTTL = def.OpenRouter.ModelsCacheTTL
	}
}

// applyEnv lets well-known variables win over the file
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPEN_ROUTER_API_KEY"); v != "" {
		cfg.OpenRouter.APIKey = v
	}
	if v := os.Getenv("MADLEN_BACKEND_URL"); v != "" {
		cfg.Client.BackendURL = v
	}
	if v := os.Getenv("MADLEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MADLEN_REDIS_URL"); v != "" {
		cfg.OpenRouter.RedisURL = v
	}
}

// SingleFlightEnabled reports the send guard setting, defaulting to on
func (c *Config) SingleFlightEnabled() bool {
	return c.Client.SingleFlight == nil || *c.Client.SingleFlight
}

// DBPath returns the configured history database path or the XDG default
func (c *Config) DBPath() (string, error) {
	if c.Server.DBPath != "" {
		return c.Server.DBPath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "madlen.db"), nil
}

// LogPath returns where the TUI writes its log
func (c *Config) LogPath() (string, error) {
	if c.Client.LogFile != "" {
		return c.Client.LogFile, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "madlen.log"), nil
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "madlen", "config.yaml")
}

// DataDir is $XDG_DATA_HOME/madlen, falling back to ~/.local/share/madlen
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "madlen"), nil
}

func boolPtr(b bool) *bool {
	return &b
}
