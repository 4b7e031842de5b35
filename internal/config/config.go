// Package config resolves the bot's runtime settings. Precedence is
// defaults, then the optional yaml config file, then environment
// variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath string
	Timeout    string
	Retries    int
	DataDir    string
	NoCache    bool
}

type Settings struct {
	TelegramToken string

	APIBaseURL   string
	SwapBaseURL  string
	TokenBaseURL string
	RiskBaseURL  string

	Timeout time.Duration
	Retries int

	AuthPollInterval time.Duration
	AuthPollTimeout  time.Duration
	SessionDuration  time.Duration

	DataDir string

	CacheEnabled  bool
	CachePath     string
	CacheLockPath string
	MetadataTTL   time.Duration
}

type fileConfig struct {
	Telegram struct {
		Token    string `yaml:"token"`
		TokenEnv string `yaml:"token_env"`
	} `yaml:"telegram"`
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
		Retries *int   `yaml:"retries"`
	} `yaml:"api"`
	Swap struct {
		BaseURL      string `yaml:"base_url"`
		TokenBaseURL string `yaml:"token_base_url"`
	} `yaml:"swap"`
	Risk struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"risk"`
	Auth struct {
		PollInterval    string `yaml:"poll_interval"`
		PollTimeout     string `yaml:"poll_timeout"`
		SessionDuration string `yaml:"session_duration"`
		DataDir         string `yaml:"data_dir"`
	} `yaml:"auth"`
	Cache struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
		TTL      string `yaml:"ttl"`
	} `yaml:"cache"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.AuthPollInterval <= 0 {
		settings.AuthPollInterval = 5 * time.Second
	}
	if settings.AuthPollTimeout <= 0 {
		settings.AuthPollTimeout = 10 * time.Minute
	}
	if settings.SessionDuration <= 0 {
		settings.SessionDuration = 24 * time.Hour
	}
	if settings.MetadataTTL <= 0 {
		settings.MetadataTTL = 24 * time.Hour
	}

	return settings, nil
}

// Validate checks the fields that have no usable default.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.TelegramToken) == "" {
		return fmt.Errorf("telegram bot token is required (set WALLETBOT_TELEGRAM_TOKEN or TELEGRAM_BOT_TOKEN)")
	}
	if strings.TrimSpace(s.APIBaseURL) == "" {
		return fmt.Errorf("wallet API base URL is required")
	}
	return nil
}

func defaultSettings() (Settings, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Settings{}, err
	}
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		APIBaseURL:       "https://api.voidexchange.io/v1",
		SwapBaseURL:      "https://transaction-v1.raydium.io",
		TokenBaseURL:     "https://lite-api.jup.ag",
		RiskBaseURL:      "https://risk.voidexchange.io",
		Timeout:          10 * time.Second,
		Retries:          2,
		AuthPollInterval: 5 * time.Second,
		AuthPollTimeout:  10 * time.Minute,
		SessionDuration:  24 * time.Hour,
		DataDir:          dataDir,
		CacheEnabled:     true,
		CachePath:        cachePath,
		CacheLockPath:    lockPath,
		MetadataTTL:      24 * time.Hour,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "walletbot", "config.yaml"), nil
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".walletbot"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "walletbot")
	return filepath.Join(dir, "metadata.db"), filepath.Join(dir, "metadata.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Telegram.Token != "" {
		settings.TelegramToken = cfg.Telegram.Token
	}
	if cfg.Telegram.TokenEnv != "" {
		settings.TelegramToken = os.Getenv(cfg.Telegram.TokenEnv)
	}
	if cfg.API.BaseURL != "" {
		settings.APIBaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	}
	if cfg.API.Timeout != "" {
		d, err := time.ParseDuration(cfg.API.Timeout)
		if err != nil {
			return fmt.Errorf("config api.timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.API.Retries != nil {
		settings.Retries = *cfg.API.Retries
	}
	if cfg.Swap.BaseURL != "" {
		settings.SwapBaseURL = strings.TrimRight(cfg.Swap.BaseURL, "/")
	}
	if cfg.Swap.TokenBaseURL != "" {
		settings.TokenBaseURL = strings.TrimRight(cfg.Swap.TokenBaseURL, "/")
	}
	if cfg.Risk.BaseURL != "" {
		settings.RiskBaseURL = strings.TrimRight(cfg.Risk.BaseURL, "/")
	}
	if cfg.Auth.PollInterval != "" {
		d, err := time.ParseDuration(cfg.Auth.PollInterval)
		if err != nil {
			return fmt.Errorf("config auth.poll_interval: %w", err)
		}
		settings.AuthPollInterval = d
	}
	if cfg.Auth.PollTimeout != "" {
		d, err := time.ParseDuration(cfg.Auth.PollTimeout)
		if err != nil {
			return fmt.Errorf("config auth.poll_timeout: %w", err)
		}
		settings.AuthPollTimeout = d
	}
	if cfg.Auth.SessionDuration != "" {
		d, err := time.ParseDuration(cfg.Auth.SessionDuration)
		if err != nil {
			return fmt.Errorf("config auth.session_duration: %w", err)
		}
		settings.SessionDuration = d
	}
	if cfg.Auth.DataDir != "" {
		settings.DataDir = cfg.Auth.DataDir
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Cache.TTL != "" {
		d, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("config cache.ttl: %w", err)
		}
		settings.MetadataTTL = d
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("WALLETBOT_TELEGRAM_TOKEN"); v != "" {
		settings.TelegramToken = v
	} else if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		settings.TelegramToken = v
	}
	if v := os.Getenv("WALLETBOT_API_BASE_URL"); v != "" {
		settings.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WALLETBOT_SWAP_BASE_URL"); v != "" {
		settings.SwapBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WALLETBOT_TOKEN_BASE_URL"); v != "" {
		settings.TokenBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WALLETBOT_RISK_BASE_URL"); v != "" {
		settings.RiskBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WALLETBOT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("WALLETBOT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("WALLETBOT_AUTH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.AuthPollInterval = d
		}
	}
	if v := os.Getenv("WALLETBOT_AUTH_POLL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.AuthPollTimeout = d
		}
	}
	if v := os.Getenv("WALLETBOT_SESSION_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.SessionDuration = d
		}
	}
	if v := os.Getenv("WALLETBOT_DATA_DIR"); v != "" {
		settings.DataDir = v
	}
	if v := os.Getenv("WALLETBOT_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("WALLETBOT_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("WALLETBOT_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("WALLETBOT_METADATA_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.MetadataTTL = d
		}
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if strings.TrimSpace(flags.DataDir) != "" {
		settings.DataDir = flags.DataDir
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	return nil
}
