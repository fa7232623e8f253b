// Package main is the entry point for pitchd, a realtime pitch-to-MIDI
// engine for an electric guitar. It opens a full-duplex audio device,
// runs the DSP/tracking pipeline, and drives a MIDI output port until an
// interrupt signal is received.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pitchd/internal/audiodev"
	"pitchd/internal/config"
	"pitchd/internal/engine"
	"pitchd/internal/midi"
	"pitchd/internal/midiout"
)

// Version is set at build time via ldflags.
var Version = "dev"

// cliConfig holds command-line overrides for the daemon.
type cliConfig struct {
	ConfigDir       string
	PreferredVendor string
	MidiPortName    string
	Verbose         bool
}

func main() {
	cli := parseFlags()

	if cli.Verbose {
		log.Printf("pitchd version %s starting...", Version)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *cliConfig {
	cli := &cliConfig{}

	flag.StringVar(&cli.ConfigDir, "config", "", "Configuration directory (default: ~/.config/pitchd)")
	flag.StringVar(&cli.PreferredVendor, "device", "", "Preferred ASIO device vendor substring (e.g. Behringer)")
	flag.StringVar(&cli.MidiPortName, "midi-port", "", "Preferred MIDI output port name (e.g. loopMIDI Port)")
	flag.BoolVar(&cli.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if cli.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		cli.ConfigDir = homeDir + "/.config/pitchd"
	}

	return cli
}

func run(ctx context.Context, cli *cliConfig) error {
	configMgr := config.NewManager(cli.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	if cli.PreferredVendor != "" {
		cfg.Device.PreferredVendor = cli.PreferredVendor
	}
	if cli.MidiPortName != "" {
		cfg.Device.MidiPortName = cli.MidiPortName
	}

	sink := openSink(cfg.Device.MidiPortName)

	eng := engine.New(cfg, sink)

	dev, err := audiodev.Open(eng.RingBuffer(), float64(cfg.Audio.SampleRate), cfg.Audio.BufferSize, cfg.Device.PreferredVendor)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	log.Printf("[AUDIO] Using input device: %s", dev.Name())

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	log.Printf("[ENGINE] Running (sample rate %d Hz, window %d, padded %d)",
		cfg.Audio.SampleRate, cfg.Audio.AnalysisWindow, cfg.Audio.PaddedSize)

	runErr := eng.Run(ctx)

	if err := dev.Stop(); err != nil {
		log.Printf("[AUDIO] error stopping device: %v", err)
	}
	eng.Shutdown()

	return runErr
}

// openSink opens the configured MIDI port, logging and degrading to a
// no-op sink on failure per spec.md §7's MidiTransportError policy.
func openSink(portName string) midi.Sink {
	port, err := midiout.Open(portName)
	if err != nil {
		log.Printf("[MIDI] Could not open MIDI port %q: %v", portName, err)
		log.Printf("[MIDI] Continuing with a disabled MIDI sink")
		return midiout.NoOp{}
	}
	log.Printf("[MIDI] MIDI Port Opened: %s", port.Name())
	return port
}
