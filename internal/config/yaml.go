// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"strconv"
	"time"

	"termviz/internal/analysis"
	applog "termviz/internal/log"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables applied over the file.
const (
	EnvDebug    = "TERMVIZ_DEBUG"
	EnvLogLevel = "TERMVIZ_LOG_LEVEL"
	EnvWSAddr   = "TERMVIZ_WS_ADDR"
	EnvUDPAddr  = "TERMVIZ_UDP_ADDR"
	EnvLatency  = "TERMVIZ_LATENCY"
)

// DefaultPath is searched when no path is given.
const DefaultPath = "termviz.yaml"

// LoadConfig loads configuration from the YAML file at path. With an empty
// path it tries DefaultPath and falls back to built-in defaults when that is
// absent. Environment overrides are applied after the file, then the result
// is validated. The program never writes configuration back.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
		applog.Debugf("Config: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every option against its limits.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(ErrInvalid, format, args...)
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return invalid("audio.input_device %d", a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %.0f outside %d-%d Hz", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		return invalid("audio.input_channels %d outside 1-%d", a.InputChannels, MaxChannels)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer %d outside 1-%d", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.Latency <= 0 {
		return invalid("audio.latency must be positive, got %s", a.Latency)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return invalid("audio.gate_threshold %.3f outside 0-1", a.GateThreshold)
	}

	s := c.Spectrum
	if s.Bands <= 0 {
		return invalid("spectrum.bands must be positive, got %d", s.Bands)
	}
	if s.MaxFrequency <= 0 {
		return invalid("spectrum.max_frequency must be positive, got %.0f", s.MaxFrequency)
	}
	if s.Scale <= 0 {
		return invalid("spectrum.scale must be positive, got %g", s.Scale)
	}
	if _, err := analysis.ParseWindowFunc(s.Window); err != nil {
		return invalid("spectrum.window %q", s.Window)
	}

	if c.Playback.FrameSpan <= 0 {
		return invalid("playback.frame_span must be positive, got %s", c.Playback.FrameSpan)
	}
	if c.Display.FrameRate <= 0 || c.Display.FrameRate > MaxFrameRate {
		return invalid("display.frame_rate %d outside 1-%d", c.Display.FrameRate, MaxFrameRate)
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return invalid("recording.bit_depth %d, want 16, 24 or 32", c.Recording.BitDepth)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv(EnvDebug); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			applog.Debugf("Config: overriding debug from env: %v", b)
		} else {
			applog.Warnf("Config: ignoring %s=%q: %v", EnvDebug, val, err)
		}
	}

	if val, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = val
		applog.Debugf("Config: overriding log_level from env: %s", val)
	}

	if val, ok := os.LookupEnv(EnvWSAddr); ok {
		c.Transport.WebSocketAddr = val
		applog.Debugf("Config: overriding transport.websocket_addr from env: %s", val)
	}

	if val, ok := os.LookupEnv(EnvUDPAddr); ok {
		c.Transport.UDPAddr = val
		applog.Debugf("Config: overriding transport.udp_addr from env: %s", val)
	}

	if val, ok := os.LookupEnv(EnvLatency); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Audio.Latency = d
			applog.Debugf("Config: overriding audio.latency from env: %s", d)
		} else {
			applog.Warnf("Config: ignoring %s=%q: %v", EnvLatency, val, err)
		}
	}
}
