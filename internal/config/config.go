package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/justyntemme/tscat/internal/debug"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Store     StoreConfig     `json:"store" mapstructure:"store"`
	Catalogue CatalogueConfig `json:"catalogue" mapstructure:"catalogue"`
	Driver    DriverConfig    `json:"driver" mapstructure:"driver"`
	Debug     DebugConfig     `json:"debug" mapstructure:"debug"`
	Export    ExportConfig    `json:"export" mapstructure:"export"`
	Hotkeys   HotkeysConfig   `json:"hotkeys" mapstructure:"hotkeys"`
}

// StoreConfig locates the catalogue database
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"` // ":memory:" for a throwaway store
}

// CatalogueConfig seeds newly created catalogues and events
type CatalogueConfig struct {
	DefaultAuthor string `json:"defaultAuthor" mapstructure:"defaultAuthor"`
	DefaultName   string `json:"defaultName" mapstructure:"defaultName"`
}

type DriverConfig struct {
	ShutdownTimeout string `json:"shutdownTimeout" mapstructure:"shutdownTimeout"` // Go duration, e.g. "5s"
}

// Timeout parses ShutdownTimeout, falling back to the default.
func (c DriverConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return DefaultShutdownTimeout
	}
	return d
}

type DebugConfig struct {
	Categories string `json:"categories" mapstructure:"categories"` // "all" | "none" | "DRIVER,STORE"
}

type ExportConfig struct {
	Format string `json:"format" mapstructure:"format"` // "json" | "votable"
}

const DefaultShutdownTimeout = 5 * time.Second

// EnvPrefix prefixes environment overrides, e.g. TSCAT_STORE_PATH.
const EnvPrefix = "TSCAT"

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Catalogue: CatalogueConfig{
			DefaultAuthor: "Author",
			DefaultName:   "New Catalogue",
		},
		Driver: DriverConfig{
			ShutdownTimeout: DefaultShutdownTimeout.String(),
		},
		Debug: DebugConfig{
			Categories: "",
		},
		Export: ExportConfig{
			Format: "json",
		},
		Hotkeys: DefaultHotkeys(),
	}
}

// ConfigPath returns the config file path: ~/.config/tscat/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tscat", "config.json")
}

// DefaultStorePath is the catalogue database next to the config file.
func DefaultStorePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tscat", "catalogues.db")
}

// Load reads the configuration from the default config file
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from path with TSCAT_ environment
// overrides applied on top.
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	if _, err := os.Stat(m.path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
	}

	v := newViper(m.path)
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			// Store error for UI display, use defaults
			log.Printf("Config: JSON parse error: %v", err)
			m.parseErr = err
			m.config = DefaultConfig()
			return nil
		}
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("Config: decode error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	debug.Log(debug.CONFIG, "Loaded from %s", m.path)
	m.config = &cfg
	return nil
}

// newViper registers every default so environment variables can override
// keys the file leaves out.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("catalogue.defaultAuthor", def.Catalogue.DefaultAuthor)
	v.SetDefault("catalogue.defaultName", def.Catalogue.DefaultName)
	v.SetDefault("driver.shutdownTimeout", def.Driver.ShutdownTimeout)
	v.SetDefault("debug.categories", def.Debug.Categories)
	v.SetDefault("export.format", def.Export.Format)
	for name, value := range def.Hotkeys.byName() {
		v.SetDefault("hotkeys."+name, value)
	}
	return v
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return fmt.Errorf("config: save before load")
	}
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// Path returns the file the configuration was loaded from
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetDefaultAuthor updates the author given to new catalogues and events
func (m *Manager) SetDefaultAuthor(author string) {
	m.mu.Lock()
	m.config.Catalogue.DefaultAuthor = author
	m.mu.Unlock()
	m.Save()
}

// SetStorePath points the application at another database
func (m *Manager) SetStorePath(path string) {
	m.mu.Lock()
	m.config.Store.Path = path
	m.mu.Unlock()
	m.Save()
}

// SetExportFormat updates the default export format
func (m *Manager) SetExportFormat(format string) {
	m.mu.Lock()
	m.config.Export.Format = format
	m.mu.Unlock()
	m.Save()
}

// GenerateConfig backs up the config at configPath (the default path when
// empty) and writes a fresh default config.
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig(configPath string) (backupPath string, err error) {
	if configPath == "" {
		configPath = ConfigPath()
	}

	// Check if existing config exists
	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
