package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlight/core/internal/trigger"
)

// fakeSpectrum lets tests drive per-band levels without a real FFT.
type fakeSpectrum struct {
	band     float64
	fullband float64
}

func (f *fakeSpectrum) GetMaxLevel(midFreq, width float64) float64 { return f.band }
func (f *fakeSpectrum) GetMaxLevelFullband() float64               { return f.fullband }

type recordingTransmitter struct {
	sent []string
}

func (r *recordingTransmitter) Send(m string) { r.sent = append(r.sent, m) }

func newBandpass(tx trigger.Transmitter, threshold float64) *namedGenerator {
	filter := trigger.NewFilter()
	gen := trigger.NewGenerator(trigger.Bandpass, filter, tx)
	gen.Threshold = threshold
	return &namedGenerator{name: "g", gen: gen, filter: filter}
}

func TestRunGeneratorsLowSoloForcesLaterBandpassToRelease(t *testing.T) {
	tx := &recordingTransmitter{}
	first := newBandpass(tx, 0.5)
	second := newBandpass(tx, 0.5)
	third := newBandpass(tx, 0.5)

	gens := []*namedGenerator{first, second, third}
	spec := &fakeSpectrum{band: 0.9} // above every threshold

	runGenerators(gens, spec, true)

	assert.True(t, first.gen.Check(spec, false), "first generator should remain active on its own")
	assert.False(t, second.gen.Check(spec, true) || isGenActiveAfterForcedCheck(second, spec))
	assert.False(t, isGenActiveAfterForcedCheck(third, spec))
}

// isGenActiveAfterForcedCheck runs Check once more with force-release set
// and returns its result; a forced Check always reports inactive.
func isGenActiveAfterForcedCheck(ng *namedGenerator, spec trigger.SpectrumSource) bool {
	return ng.gen.Check(spec, true)
}

func TestRunGeneratorsWithoutLowSoloAllBandpassIndependent(t *testing.T) {
	tx := &recordingTransmitter{}
	first := newBandpass(tx, 0.5)
	second := newBandpass(tx, 0.5)

	spec := &fakeSpectrum{band: 0.9}
	runGenerators([]*namedGenerator{first, second}, spec, false)

	assert.True(t, first.gen.Check(spec, false))
	assert.True(t, second.gen.Check(spec, false))
}

func TestRunGeneratorsLowSoloOnlyAffectsBandpassVariant(t *testing.T) {
	tx := &recordingTransmitter{}
	bandpass := newBandpass(tx, 0.5)

	filter := trigger.NewFilter()
	fullband := trigger.NewGenerator(trigger.LevelFullband, filter, tx)
	fullband.Threshold = 0.1
	namedFullband := &namedGenerator{name: "level", gen: fullband, filter: filter}

	spec := &fakeSpectrum{band: 0.9, fullband: 0.9}
	runGenerators([]*namedGenerator{bandpass, namedFullband}, spec, true)

	require.False(t, fullband.Invert)
	assert.True(t, namedFullband.gen.Check(spec, false), "fullband variant is never force-released by bandpass firing")
}

func TestDefaultGeneratorConfigsOrderAndShape(t *testing.T) {
	configs := defaultGeneratorConfigs()
	require.Len(t, configs, 6)

	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"bass", "lo_mid", "hi_mid", "high", "envelope", "silence"}, names)

	for _, c := range configs[:4] {
		assert.Equal(t, trigger.Bandpass, c.Variant)
	}
	assert.Equal(t, trigger.LevelFullband, configs[4].Variant)
	assert.Equal(t, trigger.SilenceFullband, configs[5].Variant)
}

func TestBuildGeneratorsWiresOnOffSignalsThroughTransmitter(t *testing.T) {
	tx := &recordingTransmitter{}
	gens := buildGenerators(defaultGeneratorConfigs(), tx)
	require.Len(t, gens, 6)

	// Filter timers fire on their own goroutine even with zero delays, so the
	// test shares one lock with them (as Core does) and waits for delivery.
	var mu sync.Mutex
	bass := gens[0]
	bass.filter.SetLocker(&mu)
	wasSent := func(m string) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, s := range tx.sent {
				if s == m {
					return true
				}
			}
			return false
		}
	}

	spec := &fakeSpectrum{band: 0.9}
	mu.Lock()
	bass.gen.Check(spec, false)
	mu.Unlock()
	require.Eventually(t, wasSent("/s2l/out/bass/on"), time.Second, time.Millisecond)

	spec.band = 0.0
	mu.Lock()
	bass.gen.Check(spec, false)
	mu.Unlock()
	require.Eventually(t, wasSent("/s2l/out/bass/off"), time.Second, time.Millisecond)
}
