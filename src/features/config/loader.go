package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		applyEnvOverrides(defaultCfg)
		manager := NewManager(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	manager := NewManager(&cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// applyEnvOverrides layers the environment-variable surface over the file.
// FORMAT, DELETE_DUPLICATE and LOCALE match the container interface of the
// original deployment; TELEGRAM_TOKEN keeps the secret out of the file.
func applyEnvOverrides(cfg *Config) {
	if format := os.Getenv("FORMAT"); format != "" {
		cfg.Rename.Format = format
	}
	if del := os.Getenv("DELETE_DUPLICATE"); del != "" {
		if v, err := strconv.ParseBool(del); err == nil {
			cfg.Rename.DeleteDuplicates = v
		} else {
			slog.Warn("Ignoring unparseable DELETE_DUPLICATE", "value", del)
		}
	}
	if locale := os.Getenv("LOCALE"); locale != "" {
		cfg.Rename.Locale = locale
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
}

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		SourcePath:      "/source",
		DestinationPath: "/dest",
		Rename: Rename{
			Format:           DefaultDestinationFormat,
			DeleteDuplicates: true,
			Locale:           "zh_CN.utf8",
			ExiftoolPath:     "exiftool",
			Workers:          1,
		},
		Watcher: Watcher{
			QuietPeriodSeconds: 30,
			RecheckSeconds:     5,
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			Enabled:     true,
			PrintRoutes: false,
			Port:        3636,
		},
		History: History{
			Enabled: true,
			Path:    "./medio.db",
		},
		Telegram: Telegram{
			Enabled: false,
			Token:   "", // Can be obtained with https://t.me/BotFather
			ChatID:  0,
		},
		Thumbnails: Thumbnails{
			Enabled: false,
			Path:    "./thumbs",
			Size:    320,
			Quality: 85,
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/jobs",
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
