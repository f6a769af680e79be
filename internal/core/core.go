// Package core wires the ring buffer, spectrum analyzer, trigger
// generators, BPM detectors, and OSC transport into the single-process
// pipeline described by the program's scheduling model: FFT at ~44 Hz, BPM
// at 20 Hz (with a 5-tick divider for the expensive stages), and OSC level
// feedback at 15 Hz, all deterministically ordered per tick.
package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/beatlight/core/internal/bpm"
	"github.com/beatlight/core/internal/feedback"
	"github.com/beatlight/core/internal/osc"
	"github.com/beatlight/core/internal/ringbuffer"
	"github.com/beatlight/core/internal/spectrum"
	"github.com/beatlight/core/internal/trigger"
)

const (
	fftTickRate   = 44.0
	bpmTickRate   = 20.0
	levelTickRate = 15.0

	ringBufferCapacity = 44100 * 2 // 2s, comfortably >= 4x the 4096-sample FFT window
	baseFreqHz         = 20.0
	scaledSpectrumBins = 200
)

// Config configures a Core at construction time.
type Config struct {
	AudioSampleRate int
	PresetDir       string
	LowSoloEnabled  bool
	Transport       *osc.Transport
	Observer        feedback.Observer
	Logger          *log.Logger
}

// Core owns the full analysis pipeline and its scheduler. It is created
// once at startup and lives for the process (spec.md §3 "Entity
// lifetimes").
type Core struct {
	mu sync.Mutex

	buffer   *ringbuffer.MonoBuffer
	analyzer *spectrum.Analyzer
	scaled   *spectrum.ScaledSpectrum

	generators     []*namedGenerator
	lowSoloEnabled bool

	continuousBPM *bpm.ContinuousDetector
	tapBPM        *bpm.TapDetector
	bpmController *bpm.OscController
	bpmActive     bool
	minBPM        int

	transport    *osc.Transport
	observer     feedback.Observer
	presetDir    string
	activePreset string
	presetLoader PresetLoader

	oscEnabled           bool
	levelFeedbackEnabled bool

	logger *log.Logger

	startTime time.Time
	cancel    context.CancelFunc
}

// New builds a Core from cfg, constructing the buffer, spectrum, all six
// generators, both BPM detectors, and wiring them to cfg.Transport.
func New(cfg Config) *Core {
	if cfg.Transport == nil {
		cfg.Transport = osc.NewTransport()
	}
	if cfg.Observer == nil {
		cfg.Observer = feedback.NewNoOpObserver()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &Core{
		buffer:               ringbuffer.New(ringBufferCapacity),
		analyzer:             spectrum.NewAnalyzer(),
		scaled:               spectrum.NewScaledSpectrum(baseFreqHz, scaledSpectrumBins),
		lowSoloEnabled:       cfg.LowSoloEnabled,
		transport:            cfg.Transport,
		observer:             cfg.Observer,
		presetDir:            cfg.PresetDir,
		oscEnabled:           true,
		levelFeedbackEnabled: true,
		minBPM:               75,
		logger:               cfg.Logger,
		startTime:            time.Time{},
	}

	adapter := transmitterAdapter{transport: c.transport}
	c.generators = buildGenerators(defaultGeneratorConfigs(), adapter)
	for _, ng := range c.generators {
		// Timer callbacks fire on their own goroutine; sharing c.mu with
		// the scheduler tick keeps filter-state mutation and emission
		// ordered within a tick (spec.md §5).
		ng.filter.SetLocker(&c.mu)
	}

	c.bpmController = bpm.NewOscController(adapter)
	c.bpmController.SetForcedTransmitter(forcedTransmitter{transport: c.transport})
	c.continuousBPM = bpm.NewContinuousDetector(c.buffer, c.bpmController)
	c.tapBPM = bpm.NewTapDetector(c.bpmController, c.elapsedSeconds)

	return c
}

func (c *Core) elapsedSeconds() float64 {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime).Seconds()
}

// PutAudio feeds interleaved PCM samples from the capture backend into the
// ring buffer. Safe to call concurrently with the scheduler (single
// producer, single consumer per spec.md §5).
func (c *Core) PutAudio(samples []float64, channelCount int) {
	c.buffer.Put(samples, channelCount)
}

// Run starts the three periodic tasks and blocks until ctx is cancelled.
func (c *Core) Run(ctx context.Context) {
	c.mu.Lock()
	c.startTime = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.runTicker(ctx, fftTickRate, c.fftTick) }()
	go func() { defer wg.Done(); c.runTicker(ctx, bpmTickRate, c.bpmTick) }()
	go func() { defer wg.Done(); c.runTicker(ctx, levelTickRate, c.levelFeedbackTick) }()
	wg.Wait()
}

// Stop cancels the scheduler started by Run.
func (c *Core) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Core) runTicker(ctx context.Context, hz float64, tick func()) {
	interval := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// fftTick runs the ~44 Hz analysis step: FFT -> scaled spectrum -> triggers
// -> filters -> OSC, in that deterministic order (spec.md §5).
func (c *Core) fftTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := c.buffer.Last(spectrum.WindowSize)
	if len(samples) < spectrum.WindowSize {
		return
	}

	mag := c.analyzer.Magnitudes(samples)
	c.scaled.UpdateWithLinearSpectrum(mag)

	runGenerators(c.generators, c.scaled, c.lowSoloEnabled)

	if err := c.observer.UpdateSpectrum(c.scaled.Bins()); err != nil {
		c.logger.Printf("[CORE] spectrum feedback error: %v", err)
	}
	if err := c.observer.UpdateWaveform(samples); err != nil {
		c.logger.Printf("[CORE] waveform feedback error: %v", err)
	}
}

// bpmTick runs the 20 Hz tempo tick: the continuous detector's own internal
// divider bounds the expensive beat-string stage to every 5th call.
func (c *Core) bpmTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bpmActive {
		return
	}
	c.continuousBPM.DetectBPM()

	if col, ok := c.continuousBPM.LatestColor(); ok {
		if err := c.observer.UpdateColor(feedback.Color{R: col.R, G: col.G, B: col.B}); err != nil {
			c.logger.Printf("[CORE] color feedback error: %v", err)
		}
	}
	if mask := c.continuousBPM.OnsetMask(); len(mask) > 0 {
		if err := c.observer.UpdateOnsets(mask); err != nil {
			c.logger.Printf("[CORE] onset feedback error: %v", err)
		}
	}
}

// levelFeedbackTick emits the six level-feedback values in the fixed
// broadcast order: bass, lo-mid, hi-mid, high, envelope, silence.
func (c *Core) levelFeedbackTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.levelFeedbackEnabled {
		return
	}

	values := make(map[string]float64, len(c.generators))
	for _, ng := range c.generators {
		var v float64
		if ng.gen.Variant == trigger.Bandpass {
			v = c.scaled.GetMaxLevel(ng.gen.CenterHz, ng.gen.Width)
		} else {
			v = c.scaled.GetMaxLevelFullband()
			if ng.name == "silence" {
				v = 1 - v
			}
		}
		values[ng.name] = v
		c.transport.Send(fmt.Sprintf("/s2l/out/%s=%.3f", ng.name, v), false)
	}

	lf := feedback.LevelFeedback{
		Bass:     values["bass"],
		LoMid:    values["lo_mid"],
		HiMid:    values["hi_mid"],
		High:     values["high"],
		Envelope: values["envelope"],
		Silence:  values["silence"] > 0.5,
	}
	if err := c.observer.UpdateLevelFeedback(lf); err != nil {
		c.logger.Printf("[CORE] level feedback observer error: %v", err)
	}
}
