package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// presetExtensions are tried in order when resolving a preset name
var presetExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles game preset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new preset manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	m.loadDefaultConfig()

	return m, nil
}

// LoadConfig loads a preset by name. The name may carry its extension.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := presetID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	config, err := engine.LoadGameConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}

	m.configs[id] = config
	return config, nil
}

// resolve finds the preset file for name
func (m *Manager) resolve(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", ErrConfigNotFound
	}
	if isPresetFile(name) {
		return filepath.Join(m.configDir, name), nil
	}
	for _, ext := range presetExtensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ListConfigs returns information about every valid preset, sorted by ID.
// Invalid presets are skipped and logged.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	infos, err := m.scan()
	if err != nil && infos == nil {
		return nil, err
	}
	if err != nil {
		log.Warn().Err(err).Str("dir", m.configDir).Msg("Skipping invalid presets")
	}
	return infos, nil
}

// LoadAll loads every preset in the directory and returns the combined
// errors of those that fail.
func (m *Manager) LoadAll() ([]*service.ConfigInfo, error) {
	return m.scan()
}

func (m *Manager) scan() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	var errs error

	for _, entry := range entries {
		if entry.IsDir() || !isPresetFile(entry.Name()) {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    presetID(entry.Name()),
			Name:        config.Name,
			Description: config.Description,
			Opponents:   config.Opponents,
			Shape:       config.Shape,
		})
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})

	return configs, errs
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached presets and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, else the first valid preset, else the built-in one
func (m *Manager) loadDefaultConfig() {
	config, err := m.LoadConfig("classic")
	if err == nil {
		m.setDefault(config)
		return
	}

	configs, _ := m.scan()
	if len(configs) > 0 {
		if config, err := m.LoadConfig(configs[0].Filename); err == nil {
			m.setDefault(config)
			return
		}
	}

	log.Warn().Str("dir", m.configDir).Msg("No valid presets found, using built-in classic")
	m.setDefault(engine.DefaultGameConfig())
}

func (m *Manager) setDefault(config *engine.GameConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

func isPresetFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range presetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// presetID strips a preset extension from name
func presetID(name string) string {
	if isPresetFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
