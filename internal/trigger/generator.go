package trigger

import "fmt"

// Variant selects which spectrum measurement a Generator evaluates.
type Variant int

const (
	Bandpass Variant = iota
	LevelFullband
	SilenceFullband
)

// SpectrumSource is the subset of *spectrum.ScaledSpectrum a Generator
// needs. Declared locally to avoid a package dependency cycle and to keep
// Generator testable against a fake.
type SpectrumSource interface {
	GetMaxLevel(midFreq, width float64) float64
	GetMaxLevelFullband() float64
}

// OscParams holds the OSC message templates and level mapping range for a
// single Generator.
type OscParams struct {
	OnMessage    string
	OffMessage   string
	LevelMessage string
	MinLevel     float64
	MaxLevel     float64
	Label        string
}

// Transmitter is the minimal OSC send surface a Generator needs.
type Transmitter interface {
	Send(message string)
}

// Generator evaluates one threshold test per scheduler tick and drives an
// owned Filter from the result.
type Generator struct {
	Variant   Variant
	CenterHz  float64
	Width     float64
	Invert    bool
	Threshold float64

	last     float64
	isActive bool

	Filter *Filter
	Params OscParams

	osc Transmitter
}

// NewGenerator returns a Generator wired to the given filter, OSC params
// and transmitter, defaulted per the variant (see ResetParameters).
func NewGenerator(variant Variant, filter *Filter, osc Transmitter) *Generator {
	g := &Generator{Variant: variant, Filter: filter, osc: osc}
	g.ResetParameters()
	return g
}

// ResetParameters restores the variant's documented defaults.
func (g *Generator) ResetParameters() {
	switch g.Variant {
	case Bandpass:
		g.Threshold = 0.5
		g.Filter.OnDelay = 0
		g.Filter.OffDelay = 0
		g.Filter.MaxHold = 0
	case LevelFullband:
		g.Threshold = 0.1
		g.Filter.OnDelay = 0.5
		g.Filter.OffDelay = 2.0
		g.Filter.MaxHold = 0
	case SilenceFullband:
		g.Threshold = 0.9
		g.Filter.OnDelay = 2.5
		g.Filter.OffDelay = 1.0
		g.Filter.MaxHold = 0
		g.Invert = true
	}
	g.last = 0
	g.isActive = false
}

// Check evaluates the current spectrum against the threshold, drives the
// filter edges, and optionally transmits a level-feedback message. It
// returns whether the generator is currently active.
func (g *Generator) Check(spec SpectrumSource, forceRelease bool) bool {
	var value float64
	switch g.Variant {
	case Bandpass:
		value = spec.GetMaxLevel(g.CenterHz, g.Width)
	default:
		value = spec.GetMaxLevelFullband()
	}
	if g.Invert {
		value = 1 - value
	}

	if forceRelease {
		g.Filter.TriggerOff()
		g.isActive = false
	} else if !g.isActive && value >= g.Threshold {
		g.Filter.TriggerOn()
		g.isActive = true
	} else if g.isActive && value < g.Threshold {
		g.Filter.TriggerOff()
		g.isActive = false
	}

	if absDiff(value, g.last) > 0.001 && g.Params.LevelMessage != "" && g.Threshold > 0 {
		ratio := clampF(value/g.Threshold, 0, 1)
		scaled := g.Params.MinLevel + ratio*(g.Params.MaxLevel-g.Params.MinLevel)
		if g.osc != nil {
			g.osc.Send(fmt.Sprintf("%s%.3f", g.Params.LevelMessage, scaled))
		}
	}

	g.last = value
	return g.isActive
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
