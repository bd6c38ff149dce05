package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new Manager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update replaces the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"format_changed", oldConfig.Rename.Format != config.Rename.Format,
			"delete_duplicates_changed", oldConfig.Rename.DeleteDuplicates != config.Rename.DeleteDuplicates,
			"workers_changed", oldConfig.Rename.Workers != config.Rename.Workers,
			"telegram_enabled_changed", oldConfig.Telegram.Enabled != config.Telegram.Enabled,
		)
	}
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// EnsureDirectories creates the destination directory if it doesn't exist.
// The source directory is the transfer target of another system; if it is
// missing the process must not silently invent it.
func (m *Manager) EnsureDirectories() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if info, err := os.Stat(cfg.SourcePath); err != nil {
		return fmt.Errorf("source directory %s is not readable: %w", cfg.SourcePath, err)
	} else if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", cfg.SourcePath)
	}

	if err := os.MkdirAll(cfg.DestinationPath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", cfg.DestinationPath, err)
	}

	slog.Info("Required directories verified", "source", cfg.SourcePath, "destination", cfg.DestinationPath)
	return nil
}

// redactedCfg gets a redacted copy of the Config. Callers hold m.mu.
func (m *Manager) redactedCfg() Config {
	var cfgCpy = *m.config
	if cfgCpy.Telegram.Token != "" {
		cfgCpy.Telegram.Token = "<redacted>"
	}
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func (m *Manager) GetYAML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
