package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MIDIConfig stores the output port preference.
type MIDIConfig struct {
	PortName    string `json:"portName,omitempty"`
	AutoConnect bool   `json:"autoConnect"`
}

// PlaybackConfig stores the scheduler tuning knobs.
type PlaybackConfig struct {
	ScheduleAheadTime float64 `json:"scheduleAheadTime,omitempty"` // seconds
	StepPrecision     int     `json:"stepPrecision,omitempty"`
	BeatAmount        int     `json:"beatAmount,omitempty"`
	Tempo             float64 `json:"tempo,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	MIDI     MIDIConfig     `json:"midi,omitempty"`
	Playback PlaybackConfig `json:"playback,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{
			AutoConnect: true,
		},
		Playback: PlaybackConfig{
			ScheduleAheadTime: 0.2,
			StepPrecision:     64,
			BeatAmount:        4,
			Tempo:             120,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "efflux"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
