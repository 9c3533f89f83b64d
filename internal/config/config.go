// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and hardware limits for the visualizer.
const (
	DefaultChannels        = 2
	DefaultDeviceID        = MinDeviceID // system default input
	DefaultFramesPerBuffer = 512
	DefaultLatency         = 5 * time.Second
	DefaultSampleRate      = 44100
	DefaultGateThreshold   = 0.001

	DefaultBands        = 20
	DefaultMaxFrequency = 20000.0
	DefaultFloor        = 30
	DefaultScale        = 100.0
	DefaultWindow       = "Hann"

	DefaultFrameRate = 60
	DefaultFrameSpan = 50 * time.Millisecond

	DefaultBitDepth = 16
	DefaultLogLevel = "info"

	MinDeviceID     = -1 // -1 represents the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxChannels     = 2
	MaxBufferFrames = 8192
	MaxFrameRate    = 240
)

// Config holds every runtime option. It is read from YAML, then environment
// overrides, then command-line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Display   DisplayConfig   `yaml:"display"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig covers live capture.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate      float64       `yaml:"sample_rate"`       // Hz
	InputChannels   int           `yaml:"input_channels"`    // 1 mono, 2 stereo
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // PortAudio callback size
	LowLatency      bool          `yaml:"low_latency"`       // request the device's low input latency
	Latency         time.Duration `yaml:"latency"`           // sizes the sample channel
	GateEnabled     bool          `yaml:"gate_enabled"`
	GateThreshold   float64       `yaml:"gate_threshold"` // 0.0-1.0 of full scale
}

// SpectrumConfig covers bucketing.
type SpectrumConfig struct {
	Bands        int     `yaml:"bands"`
	MaxFrequency float64 `yaml:"max_frequency"`
	Floor        uint64  `yaml:"floor"`
	Scale        float64 `yaml:"scale"`
	Window       string  `yaml:"window"` // window function name, e.g. "Hann"
}

// PlaybackConfig covers file playback.
type PlaybackConfig struct {
	FrameSpan time.Duration `yaml:"frame_span"`
}

// DisplayConfig covers the render loop and the initial mode flags.
type DisplayConfig struct {
	FrameRate  int  `yaml:"frame_rate"`
	Horizontal bool `yaml:"horizontal"`
	Stereo     bool `yaml:"stereo"`
}

// RecordingConfig covers WAV recording of live input.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty picks a timestamped name
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig covers frame mirroring. Empty addresses disable a sink.
type TransportConfig struct {
	WebSocketAddr string `yaml:"websocket_addr"`
	UDPAddr       string `yaml:"udp_addr"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			InputChannels:   DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Latency:         DefaultLatency,
			GateThreshold:   DefaultGateThreshold,
		},
		Spectrum: SpectrumConfig{
			Bands:        DefaultBands,
			MaxFrequency: DefaultMaxFrequency,
			Floor:        DefaultFloor,
			Scale:        DefaultScale,
			Window:       DefaultWindow,
		},
		Playback: PlaybackConfig{
			FrameSpan: DefaultFrameSpan,
		},
		Display: DisplayConfig{
			FrameRate: DefaultFrameRate,
		},
		Recording: RecordingConfig{
			BitDepth: DefaultBitDepth,
		},
	}
}

// RecordingPath returns the configured output file, or a timestamped name.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	return "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
}

// FrameInterval returns the render tick period.
func (c *Config) FrameInterval() time.Duration {
	if c.Display.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.Display.FrameRate)
}
