// Package config handles engine configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the engine's tunable configuration.
type Config struct {
	// Audio settings: sample rate, block size, analysis window sizing.
	Audio AudioConfig `json:"audio"`

	// Tracking settings: the peak picker and MIDI tracker's thresholds.
	Tracking TrackingConfig `json:"tracking"`

	// Device settings: audio and MIDI port selection preferences.
	Device DeviceConfig `json:"device"`
}

// AudioConfig contains audio capture and spectral analysis sizing.
type AudioConfig struct {
	// SampleRate in Hz (default: 48000)
	SampleRate int `json:"sampleRate"`

	// BufferSize is the audio callback block size in samples (default: 128)
	BufferSize int `json:"bufferSize"`

	// RingBufferSize is the capacity of the ring buffer in samples;
	// should be several times BufferSize (default: 2048)
	RingBufferSize int `json:"ringBufferSize"`

	// AnalysisWindow W is the number of samples per analysis (default: 512)
	AnalysisWindow int `json:"analysisWindow"`

	// PaddedSize P is the zero-padded FFT size, a power of two >= AnalysisWindow (default: 2048)
	PaddedSize int `json:"paddedSize"`
}

// TrackingConfig contains the peak picker and MIDI tracker's thresholds.
type TrackingConfig struct {
	// MaxNotes K is the maximum simultaneous fundamentals reported (default: 6)
	MaxNotes int `json:"maxNotes"`

	// MinPeakThreshold is the whitened magnitude floor for a fundamental (default: 0.08)
	MinPeakThreshold float64 `json:"minPeakThreshold"`

	// NumHarmonics is the number of harmonics suppressed per peeled peak (default: 6)
	NumHarmonics int `json:"numHarmonics"`

	// SilenceRMS gates the spectrum pipeline off below this RMS (default: 0.002)
	SilenceRMS float64 `json:"silenceRms"`

	// FramesToKill is the number of consecutive missed updates before NoteOff (default: 3)
	FramesToKill int `json:"framesToKill"`

	// FreqFloorHz ignores peaks and note conversions at or below this frequency (default: 55)
	FreqFloorHz float64 `json:"freqFloorHz"`

	// MinRMS and TransientRatio feed the advisory transient flag (defaults: 0.01, 2.0)
	MinRMS         float64 `json:"minRms"`
	TransientRatio float64 `json:"transientRatio"`

	// DefaultVelocity is the lowest velocity of the magnitude-based NoteOn mapping, and the velocity used for arrivals that carry none (default: 90)
	DefaultVelocity int `json:"defaultVelocity"`
}

// DeviceConfig contains audio/MIDI device selection preferences.
type DeviceConfig struct {
	// PreferredVendor is matched against ASIO device names, e.g. "Behringer"
	PreferredVendor string `json:"preferredVendor"`

	// MidiPortName is matched against available MIDI output port names, e.g. "loopMIDI Port"
	MidiPortName string `json:"midiPortName"`
}

// DefaultConfig returns the default configuration, tuned empirically for
// a guitar input per the design notes' bracketed ranges.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:     48000,
			BufferSize:     128,
			RingBufferSize: 128 * 16,
			AnalysisWindow: 512,
			PaddedSize:     2048,
		},
		Tracking: TrackingConfig{
			MaxNotes:         6,
			MinPeakThreshold: 0.08,
			NumHarmonics:     6,
			SilenceRMS:       0.002,
			FramesToKill:     3,
			FreqFloorHz:      55,
			MinRMS:           0.01,
			TransientRatio:   2.0,
			DefaultVelocity:  90,
		},
		Device: DeviceConfig{
			PreferredVendor: "",
			MidiPortName:    "loopMIDI Port",
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

// Load reads the configuration from disk, creating a default config.json
// on first run.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("config: read: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse: %w", err)
	}

	m.config = cfg
	return nil
}

// Save writes the configuration to disk as indented JSON.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
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
func (m *Manager) Update(cfg *Config) error {
	m.config = cfg
	return m.Save()
}
