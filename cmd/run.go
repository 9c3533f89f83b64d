// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"path/filepath"
	"time"

	"termviz/internal/analysis"
	"termviz/internal/audio"
	"termviz/internal/config"
	applog "termviz/internal/log"
	"termviz/internal/lyrics"
	"termviz/internal/pipeline"
	"termviz/internal/playback"
	"termviz/internal/transport"
	"termviz/internal/transport/udp"
	"termviz/internal/tui"
	"termviz/pkg/build"

	"github.com/pkg/errors"
)

// withPortAudio runs fn between PortAudio initialisation and termination.
func withPortAudio(fn func() error) (err error) {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if terr := audio.Terminate(); terr != nil && err == nil {
			err = terr
		}
	}()
	return fn()
}

// runLive captures from the configured device until the user quits.
func runLive(ctx context.Context, cfg *config.Config) error {
	engine, err := audio.NewEngine(audio.CaptureConfig{
		DeviceID:        cfg.Audio.InputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.InputChannels,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
		Latency:         cfg.Audio.Latency,
		BitDepth:        cfg.Recording.BitDepth,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
		if n := engine.Channel().Overflows(); n > 0 {
			applog.Warnf("Audio: input overflowed %d times, %d samples dropped", n, engine.Channel().Dropped())
		}
	}()

	engine.SetGateThreshold(cfg.Audio.GateThreshold)
	if cfg.Audio.GateEnabled {
		engine.EnableGate()
	}

	bucketer, err := newBucketer(cfg, engine.SampleRate(), engine.Channels())
	if err != nil {
		return err
	}

	sink, err := openTransports(cfg)
	if err != nil {
		return err
	}
	defer closeTransports(sink)

	if err := engine.StartInputStream(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		path := cfg.RecordingPath(time.Now())
		if err := engine.StartRecording(path); err != nil {
			return err
		}
		defer applog.Infof("Recording saved to: %s", path)
	}

	p := pipeline.New(pipeline.NewLiveSource(engine.Channel()), bucketer, pipeline.Options{
		Sender: sender(sink),
	})

	return tui.Run(ctx, tui.NewModel(p, tui.Options{
		Title:         build.GetBuildFlags().Name + " · " + engine.DeviceName(),
		Mode:          tui.Mode{Horizontal: cfg.Display.Horizontal, Stereo: cfg.Display.Stereo},
		FrameInterval: cfg.FrameInterval(),
	}))
}

// runPlay plays file to the speaker and visualizes it, showing lyricsFile
// in sync when given.
func runPlay(ctx context.Context, cfg *config.Config, file, lyricsFile string) error {
	track, err := playback.Decode(file)
	if err != nil {
		return err
	}

	var table lyrics.Table
	if lyricsFile != "" {
		if table, err = lyrics.Load(lyricsFile); err != nil {
			return err
		}
	}

	bucketer, err := newBucketer(cfg, float64(track.SampleRate), track.Channels)
	if err != nil {
		return err
	}

	sink, err := openTransports(cfg)
	if err != nil {
		return err
	}
	defer closeTransports(sink)

	player := playback.NewPlayer(track)
	p := pipeline.New(
		pipeline.NewPlaybackSource(track, player, cfg.Playback.FrameSpan),
		bucketer,
		pipeline.Options{
			Lyrics:   table,
			Clock:    player,
			Duration: track.Duration(),
			Sender:   sender(sink),
		},
	)

	if err := player.Start(); err != nil {
		return err
	}
	defer player.Close()

	return tui.Run(ctx, tui.NewModel(p, tui.Options{
		Title:         build.GetBuildFlags().Name + " · " + filepath.Base(file),
		Mode:          tui.Mode{Horizontal: cfg.Display.Horizontal, Stereo: cfg.Display.Stereo},
		FrameInterval: cfg.FrameInterval(),
		Playback:      true,
		Duration:      track.Duration(),
		Done:          player.Done(),
	}))
}

func newBucketer(cfg *config.Config, sampleRate float64, channels int) (*analysis.Bucketer, error) {
	window, err := analysis.ParseWindowFunc(cfg.Spectrum.Window)
	if err != nil {
		return nil, err
	}

	transform, err := analysis.NewFFTTransform(analysis.TransformConfig{
		SampleRate: sampleRate,
		Channels:   channels,
		Window:     window,
	})
	if err != nil {
		return nil, err
	}

	return analysis.NewBucketer(analysis.BucketConfig{
		Bands:        cfg.Spectrum.Bands,
		MaxFrequency: cfg.Spectrum.MaxFrequency,
		Floor:        cfg.Spectrum.Floor,
		Scale:        cfg.Spectrum.Scale,
	}, transform)
}

// openTransports opens every configured frame sink. A sink that cannot be
// opened is a startup error; the ones already open are closed again.
func openTransports(cfg *config.Config) (transport.Multi, error) {
	var sinks transport.Multi

	if addr := cfg.Transport.WebSocketAddr; addr != "" {
		ws, err := transport.NewWebSocketTransport(addr)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ws)
	}

	if addr := cfg.Transport.UDPAddr; addr != "" {
		pub, err := udp.Dial(addr)
		if err != nil {
			closeTransports(sinks)
			return nil, errors.Wrap(err, "failed to open UDP transport")
		}
		sinks = append(sinks, pub)
	}

	if cfg.Debug {
		sinks = append(sinks, transport.NewLoggingTransport())
	}

	return sinks, nil
}

func closeTransports(sinks transport.Multi) {
	if err := sinks.Close(); err != nil {
		applog.Warnf("Transport: %v", err)
	}
}

// sender keeps a nil interface when there is nothing to send to.
func sender(sinks transport.Multi) pipeline.Sender {
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}
