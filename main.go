// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"termviz/cmd"
	applog "termviz/internal/log"
	"termviz/pkg/build"
)

// main is the entry point for the visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Load configuration and parse command line arguments
//   - Open the audio device or decode the track, lyrics and transports
//
// 2. Concurrent Phase (Hot Path):
//   - PortAudio callback or speaker output feeds samples
//   - Render loop steps the pipeline once per frame
//
// 3. Shutdown Phase (Cold Path):
//   - Quit key, end of track or termination signal
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags.
	if err := build.Initialize(); err != nil {
		applog.Warnf("Build: %v, using development values", err)
	}

	// One thread for the audio callback, one for the render loop and I/O.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// ==================== CONCURRENT + SHUTDOWN PHASES ====================

	err := cmd.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		applog.Fatalf("%v", err)
	}
}
