// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the daemon configuration: network/transport settings,
// per-generator trigger overrides, and BPM range settings, persisted as a
// single JSON document so a saved config round-trips through Load/Save.
type Config struct {
	// Network holds the OSC transport's connection settings.
	Network NetworkConfig `json:"network"`

	// Generators is keyed by generator name ("bass", "lo_mid", "hi_mid",
	// "high", "envelope", "silence") and holds the per-generator
	// threshold/delay/OSC-template overrides layered on top of the
	// built-in defaults (spec.md §4.5).
	Generators map[string]GeneratorConfig `json:"generators"`

	// BPM holds the settings for both tempo sources.
	BPM BPMConfig `json:"bpm"`
}

// NetworkConfig mirrors the fields osc.Transport exposes as settable at
// runtime (spec.md §4.10, §6).
type NetworkConfig struct {
	// IP is the lighting console's address.
	IP string `json:"ip"`

	// TxPort is the UDP port messages are sent to (default 8001).
	TxPort int `json:"txPort"`

	// RxPort is the UDP port this daemon listens on (default 8000).
	RxPort int `json:"rxPort"`

	// TCPPort is the TCP control port (default 3032).
	TCPPort int `json:"tcpPort"`

	// UseTCP selects TCP instead of UDP.
	UseTCP bool `json:"useTcp"`

	// Framing selects the TCP stream framing: "length-prefix" (1.0,
	// default) or "slip" (1.1).
	Framing string `json:"framing"`

	// UserNumber is substituted for the `<USER>` token in outgoing
	// message templates (default "0").
	UserNumber string `json:"userNumber"`

	// Enabled gates all non-forced outgoing messages.
	Enabled bool `json:"enabled"`
}

// GeneratorConfig overrides one trigger generator's threshold, debounce
// delays, and OSC message templates (spec.md §3 "Trigger OSC parameters").
// A zero-value entry (no override present for a given name) leaves the
// generator's built-in defaults from spec.md §4.5 untouched.
type GeneratorConfig struct {
	Threshold float64 `json:"threshold"`
	OnDelay   float64 `json:"onDelay"`
	OffDelay  float64 `json:"offDelay"`
	MaxHold   float64 `json:"maxHold"`
	Invert    bool    `json:"invert"`

	OnMessage    string  `json:"onMessage"`
	OffMessage   string  `json:"offMessage"`
	LevelMessage string  `json:"levelMessage"`
	MinLevel     float64 `json:"minLevel"`
	MaxLevel     float64 `json:"maxLevel"`
}

// BPMConfig holds the settings for both tempo sources (spec.md §4.6-§4.8).
type BPMConfig struct {
	// MinBPM is the lower bound of the active tempo range, quantized to
	// {0, 50, 75, 100, 150} by bpm.QuantizeMinBPM.
	MinBPM int `json:"minBpm"`

	// Active gates the continuous BPM detector's tick.
	Active bool `json:"active"`

	// Mute suppresses the BPM controller's user message templates (the
	// info message still fires regardless, per spec.md §4.8).
	Mute bool `json:"mute"`

	// Templates holds the user-configured OSC message templates the
	// controller substitutes `<BPM...>` tokens into on each accepted
	// tempo.
	Templates []string `json:"templates"`
}

// DefaultConfig returns the default configuration: UDP to loopback at the
// documented default ports (spec.md §6), no generator overrides, and the
// spec's default BPM range floor of 75.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			IP:         "127.0.0.1",
			TxPort:     8001,
			RxPort:     8000,
			TCPPort:    3032,
			UseTCP:     false,
			Framing:    "length-prefix",
			UserNumber: "0",
			Enabled:    true,
		},
		Generators: map[string]GeneratorConfig{},
		BPM: BPMConfig{
			MinBPM:    75,
			Active:    true,
			Mute:      false,
			Templates: []string{},
		},
	}
}

// Manager handles loading and saving configuration.
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager rooted at configDir.
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing out a fresh default file
// if none exists yet.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path.
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update replaces the configuration and saves it.
func (m *Manager) Update(config *Config) error {
	m.config = config
	return m.Save()
}

// SetBPMTemplates replaces the BPM controller's message templates and
// saves the config.
func (m *Manager) SetBPMTemplates(templates []string) error {
	m.config.BPM.Templates = templates
	return m.Save()
}

// SetGenerator replaces one generator's override and saves the config.
func (m *Manager) SetGenerator(name string, gc GeneratorConfig) error {
	if m.config.Generators == nil {
		m.config.Generators = map[string]GeneratorConfig{}
	}
	m.config.Generators[name] = gc
	return m.Save()
}
