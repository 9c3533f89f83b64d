// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"termviz/internal/audio"
	"termviz/internal/config"
	applog "termviz/internal/log"
	"termviz/internal/tui"
	"termviz/pkg/build"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// runner holds the actions behind each command, replaced in tests.
type runner struct {
	live func(ctx context.Context, cfg *config.Config) error
	play func(ctx context.Context, cfg *config.Config, file, lyricsFile string) error
	list func(w io.Writer) error
	pick func() (deviceID int, sampleRate float64, err error)
}

func defaultRunner() runner {
	return runner{
		live: func(ctx context.Context, cfg *config.Config) error {
			return withPortAudio(func() error { return runLive(ctx, cfg) })
		},
		play: runPlay,
		list: func(w io.Writer) error {
			return withPortAudio(func() error { return audio.ListDevices(w) })
		},
		pick: func() (int, float64, error) {
			var (
				id   int
				rate float64
			)
			err := withPortAudio(func() error {
				var err error
				id, rate, err = tui.PickDevice()
				return err
			})
			return id, rate, err
		},
	}
}

// options are the raw flag values. Only flags the user set explicitly are
// copied over the loaded configuration.
type options struct {
	configPath string
	logFile    string
	lyricsFile string

	logLevel string
	debug    bool

	deviceID        int
	sampleRate      float64
	channels        int
	framesPerBuffer int
	lowLatency      bool
	latency         time.Duration
	gate            bool
	gateThreshold   float64

	bands        int
	maxFrequency float64
	window       string

	frameRate  int
	frameSpan  time.Duration
	horizontal bool
	stereo     bool

	record   bool
	output   string
	bitDepth int

	wsAddr  string
	udpAddr string
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, args []string) error {
	root := newRootCommand(defaultRunner())
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(r runner) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Long:          buildInfo.Description + ".\n\nWith no command, visualizes live input from the selected device.",
		Version:       buildInfo.VersionString(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return withLogFile(opts.logFile, func() error {
				return r.live(cmd.Context(), cfg)
			})
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	playCmd := &cobra.Command{
		Use:   "play <audio-file>",
		Short: "Play a WAV or MP3 file and visualize it, with optional lyrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return withLogFile(opts.logFile, func() error {
				return r.play(cmd.Context(), cfg, args[0], opts.lyricsFile)
			})
		},
	}
	playCmd.Flags().StringVar(&opts.lyricsFile, "lyrics", "",
		"Timestamped lyric file shown in sync with playback")
	playCmd.Flags().DurationVar(&opts.frameSpan, "frame-span", config.DefaultFrameSpan,
		"Length of track analysed per frame")
	rootCmd.AddCommand(playCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.list(cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(listCmd)

	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose an input device and sample rate, then visualize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			id, rate, err := r.pick()
			if errors.Is(err, tui.ErrNoSelection) {
				return nil
			}
			if err != nil {
				return err
			}
			cfg.Audio.InputDevice = id
			cfg.Audio.SampleRate = rate
			if err := cfg.Validate(); err != nil {
				return err
			}

			return withLogFile(opts.logFile, func() error {
				return r.live(cmd.Context(), cfg)
			})
		},
	}
	rootCmd.AddCommand(pickCmd)

	flags := rootCmd.PersistentFlags()

	// General
	flags.StringVar(&opts.configPath, "config", "",
		"YAML configuration file (default ./"+config.DefaultPath+" when present)")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "",
		"Write logs here while the visualizer runs (discarded otherwise)")
	flags.BoolVarP(&opts.debug, "debug", "v", false,
		"Debug logging and per-frame log transport")

	// Audio Device Configuration
	flags.IntVarP(&opts.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVarP(&opts.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to record (1=mono, 2=stereo)")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	flags.DurationVar(&opts.latency, "latency", config.DefaultLatency,
		"Audio the sample channel can hold before input is dropped")
	flags.BoolVar(&opts.gate, "gate", false,
		"Silence input buffers whose peak is below the gate threshold")
	flags.Float64Var(&opts.gateThreshold, "gate-threshold", config.DefaultGateThreshold,
		"Noise gate threshold, 0.0-1.0 of full scale")

	// Spectrum
	flags.IntVar(&opts.bands, "bands", config.DefaultBands,
		"Number of frequency bands")
	flags.Float64Var(&opts.maxFrequency, "max-frequency", config.DefaultMaxFrequency,
		"Upper edge of the highest band in Hz")
	flags.StringVar(&opts.window, "window", config.DefaultWindow,
		"Window function: Hann, Hamming, Blackman, BlackmanNuttall, Nuttall, Lanczos, Rectangular")

	// Display
	flags.IntVar(&opts.frameRate, "fps", config.DefaultFrameRate,
		"Frames drawn per second")
	flags.BoolVar(&opts.horizontal, "horizontal", false,
		"Start with horizontal bars (toggle with r)")
	flags.BoolVar(&opts.stereo, "stereo", false,
		"Start with two panes (toggle with space)")

	// Recording Configuration
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record audio from the specified input device")
	flags.StringVarP(&opts.output, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	flags.IntVar(&opts.bitDepth, "bit-depth", config.DefaultBitDepth,
		"Recording bit depth: 16, 24 or 32")

	// Transports
	flags.StringVar(&opts.wsAddr, "ws", "",
		"Serve frames as JSON on ws://ADDR/ws, e.g. 127.0.0.1:8080")
	flags.StringVar(&opts.udpAddr, "udp", "",
		"Send band packets to this UDP address, e.g. 127.0.0.1:9090")

	return rootCmd
}

// load reads the configuration file and environment, then applies every flag
// the user set on the command line.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag  string
		apply func()
	}{
		{"log-level", func() { cfg.LogLevel = o.logLevel }},
		{"debug", func() { cfg.Debug = o.debug }},
		{"device", func() { cfg.Audio.InputDevice = o.deviceID }},
		{"sample-rate", func() { cfg.Audio.SampleRate = o.sampleRate }},
		{"channels", func() { cfg.Audio.InputChannels = o.channels }},
		{"frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = o.framesPerBuffer }},
		{"low-latency", func() { cfg.Audio.LowLatency = o.lowLatency }},
		{"latency", func() { cfg.Audio.Latency = o.latency }},
		{"gate", func() { cfg.Audio.GateEnabled = o.gate }},
		{"gate-threshold", func() { cfg.Audio.GateThreshold = o.gateThreshold }},
		{"bands", func() { cfg.Spectrum.Bands = o.bands }},
		{"max-frequency", func() { cfg.Spectrum.MaxFrequency = o.maxFrequency }},
		{"window", func() { cfg.Spectrum.Window = o.window }},
		{"fps", func() { cfg.Display.FrameRate = o.frameRate }},
		{"frame-span", func() { cfg.Playback.FrameSpan = o.frameSpan }},
		{"horizontal", func() { cfg.Display.Horizontal = o.horizontal }},
		{"stereo", func() { cfg.Display.Stereo = o.stereo }},
		{"record", func() { cfg.Recording.Enabled = o.record }},
		{"output", func() { cfg.Recording.OutputFile = o.output }},
		{"bit-depth", func() { cfg.Recording.BitDepth = o.bitDepth }},
		{"ws", func() { cfg.Transport.WebSocketAddr = o.wsAddr }},
		{"udp", func() { cfg.Transport.UDPAddr = o.udpAddr }},
	}
	for _, ov := range overrides {
		if f := cmd.Flags().Lookup(ov.flag); f != nil && f.Changed {
			ov.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	return cfg, nil
}

// withLogFile sends log output to path, or discards it, while fn runs. The
// full-screen UI would otherwise be overwritten by log lines.
func withLogFile(path string, fn func() error) error {
	prev := applog.Writer()

	var out io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		defer f.Close()
		out = f
	}

	applog.SetOutput(out)
	defer applog.SetOutput(prev)

	return fn()
}
