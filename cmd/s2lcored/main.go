// Package main is the entry point for s2lcored.
// s2lcored is a headless daemon that listens to a live audio stream,
// analyzes it in real time, and fires lighting-console cues over OSC.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/beatlight/core/internal/config"
	"github.com/beatlight/core/internal/core"
	"github.com/beatlight/core/internal/feedback"
	"github.com/beatlight/core/internal/osc"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Flags holds the daemon's command-line configuration.
type Flags struct {
	ConfigDir string
	Verbose   bool
}

func main() {
	flags := parseFlags()

	if flags.Verbose {
		log.Printf("s2lcored version %s starting...", Version)
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

	if err := run(ctx, flags); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigDir, "config", "", "Configuration directory (default: ~/.config/s2lcored)")
	flag.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose logging")
	flag.Parse()

	if f.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		f.ConfigDir = homeDir + "/.config/s2lcored"
	}

	return f
}

func run(ctx context.Context, flags *Flags) error {
	if err := os.MkdirAll(flags.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	daemonCfg := configMgr.Get()

	transport := osc.NewTransport()
	transport.OnError = func(err error) {
		log.Printf("[OSC] transport error: %v", err)
	}

	var observer feedback.Observer
	if flags.Verbose {
		observer = feedback.NewLoggingObserver(log.Default())
	}

	c := core.New(core.Config{
		Transport: transport,
		Observer:  observer,
		Logger:    log.Default(),
	})
	c.ApplyConfig(daemonCfg)
	transport.OnMessage = c.HandleIncoming

	if !daemonCfg.Network.UseTCP {
		if err := transport.ListenUDP(); err != nil {
			return fmt.Errorf("failed to bind OSC UDP port: %w", err)
		}
		log.Printf("[OSC] listening for UDP on port %d, sending to %s:%d", daemonCfg.Network.RxPort, daemonCfg.Network.IP, daemonCfg.Network.TxPort)
	} else {
		log.Printf("[OSC] using TCP control connection to %s:%d", daemonCfg.Network.IP, daemonCfg.Network.TCPPort)
	}
	defer transport.Close()

	// The audio-device-specific capture backend is out of this core's
	// scope (spec.md §1); whatever backend is attached should call
	// c.PutAudio(samples, channelCount) from its own producer goroutine.

	log.Printf("[CORE] starting scheduler (FFT 44Hz, BPM 20Hz, level feedback 15Hz)")
	c.Run(ctx)

	log.Printf("[CORE] shutdown complete")
	return nil
}
