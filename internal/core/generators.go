package core

import (
	"github.com/beatlight/core/internal/osc"
	"github.com/beatlight/core/internal/trigger"
)

// GeneratorConfig fully describes one trigger generator's static identity:
// which variant it is, what band it watches (if bandpass), and the OSC
// templates it emits on.
type GeneratorConfig struct {
	Name     string
	Variant  trigger.Variant
	CenterHz float64
	Width    float64
	Params   trigger.OscParams
}

// defaultGeneratorConfigs returns the six generators in their fixed
// registration order (spec.md §4.2): bass, lo-mid, hi-mid, high, envelope,
// silence. Bass/lo-mid/hi-mid/high are bandpass generators subject to the
// low-solo policy; envelope is LevelFullband; silence is SilenceFullband.
func defaultGeneratorConfigs() []GeneratorConfig {
	return []GeneratorConfig{
		{
			Name: "bass", Variant: trigger.Bandpass, CenterHz: 80, Width: 0.08,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/bass/on", OffMessage: "/s2l/out/bass/off",
				LevelMessage: "/s2l/out/bass=", MinLevel: 0, MaxLevel: 1, Label: "Bass",
			},
		},
		{
			Name: "lo_mid", Variant: trigger.Bandpass, CenterHz: 400, Width: 0.12,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/lo_mid/on", OffMessage: "/s2l/out/lo_mid/off",
				LevelMessage: "/s2l/out/lo_mid=", MinLevel: 0, MaxLevel: 1, Label: "Lo-Mid",
			},
		},
		{
			Name: "hi_mid", Variant: trigger.Bandpass, CenterHz: 2000, Width: 0.12,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/hi_mid/on", OffMessage: "/s2l/out/hi_mid/off",
				LevelMessage: "/s2l/out/hi_mid=", MinLevel: 0, MaxLevel: 1, Label: "Hi-Mid",
			},
		},
		{
			Name: "high", Variant: trigger.Bandpass, CenterHz: 8000, Width: 0.15,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/high/on", OffMessage: "/s2l/out/high/off",
				LevelMessage: "/s2l/out/high=", MinLevel: 0, MaxLevel: 1, Label: "High",
			},
		},
		{
			Name: "envelope", Variant: trigger.LevelFullband,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/level/on", OffMessage: "/s2l/out/level/off",
				LevelMessage: "/s2l/out/level=", MinLevel: 0, MaxLevel: 1, Label: "Level",
			},
		},
		{
			Name: "silence", Variant: trigger.SilenceFullband,
			Params: trigger.OscParams{
				OnMessage: "/s2l/out/silence/on", OffMessage: "/s2l/out/silence/off",
				LevelMessage: "/s2l/out/silence=", MinLevel: 0, MaxLevel: 1, Label: "Silence",
			},
		},
	}
}

// namedGenerator pairs a live Generator with its static identity and filter,
// so the scheduler can apply the low-solo policy and log by name.
type namedGenerator struct {
	name   string
	gen    *trigger.Generator
	filter *trigger.Filter
}

// buildGenerators instantiates one Generator per config, wiring its filter's
// OnSignal/OffSignal to emit the configured OSC message (through transmitter)
// and its level-message path directly through the generator itself.
func buildGenerators(configs []GeneratorConfig, transmitter trigger.Transmitter) []*namedGenerator {
	out := make([]*namedGenerator, 0, len(configs))
	for _, cfg := range configs {
		filter := trigger.NewFilter()
		gen := trigger.NewGenerator(cfg.Variant, filter, transmitter)
		gen.CenterHz = cfg.CenterHz
		gen.Width = cfg.Width
		gen.Params = cfg.Params
		gen.ResetParameters()

		filter.OnSignal = func() {
			if onMsg := gen.Params.OnMessage; onMsg != "" {
				transmitter.Send(onMsg)
			}
		}
		filter.OffSignal = func() {
			if offMsg := gen.Params.OffMessage; offMsg != "" {
				transmitter.Send(offMsg)
			}
		}

		out = append(out, &namedGenerator{name: cfg.Name, gen: gen, filter: filter})
	}
	return out
}

// runGenerators checks every generator against spec in registration order,
// applying the low-solo policy (spec.md §4.2): once a bandpass generator
// fires, every later bandpass generator in the same tick is forced to
// release instead of being evaluated normally.
func runGenerators(gens []*namedGenerator, spec trigger.SpectrumSource, lowSoloEnabled bool) {
	fired := false
	for _, ng := range gens {
		forceRelease := lowSoloEnabled && fired && ng.gen.Variant == trigger.Bandpass
		active := ng.gen.Check(spec, forceRelease)
		if ng.gen.Variant == trigger.Bandpass && active && !forceRelease {
			fired = true
		}
	}
}

// transmitterAdapter narrows osc.Transport's two-argument Send to the
// single-argument Transmitter interface trigger.Generator and bpm.Controller
// depend on. Messages sent this way always go through the Enabled gate.
type transmitterAdapter struct {
	transport *osc.Transport
}

func (a transmitterAdapter) Send(message string) {
	a.transport.Send(message, false)
}

// forcedTransmitter bypasses the Enabled gate, used for state-echo messages
// (e.g. /s2l/out/enabled) that must reach the console even while disabled.
type forcedTransmitter struct {
	transport *osc.Transport
}

func (a forcedTransmitter) Send(message string) {
	a.transport.Send(message, true)
}
