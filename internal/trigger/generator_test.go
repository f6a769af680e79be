package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestGeneratorDefaultsByVariant(t *testing.T) {
	g := NewGenerator(Bandpass, NewFilter(), nil)
	assert.Equal(t, 0.5, g.Threshold)

	g2 := NewGenerator(LevelFullband, NewFilter(), nil)
	assert.Equal(t, 0.1, g2.Threshold)
	assert.Equal(t, 0.5, g2.Filter.OnDelay)
	assert.Equal(t, 2.0, g2.Filter.OffDelay)

	g3 := NewGenerator(SilenceFullband, NewFilter(), nil)
	assert.Equal(t, 0.9, g3.Threshold)
	assert.True(t, g3.Invert)
}

func TestGeneratorLevelMessageGating(t *testing.T) {
	tx := &recordingTransmitter{}
	fc := &fakeClock{}
	g := NewGenerator(Bandpass, &Filter{clk: fc}, tx)
	g.Params.LevelMessage = "/s2l/out/bass="
	g.Threshold = 0.5

	spec := &fakeSpectrum{band: 0.6}
	g.Check(spec, false)
	require.Len(t, tx.sent, 1)
	assert.Contains(t, tx.sent[0], "/s2l/out/bass=")

	// same value again: no new message (delta <= 0.001)
	g.Check(spec, false)
	assert.Len(t, tx.sent, 1)
}

func TestGeneratorInvertForSilence(t *testing.T) {
	fc := &fakeClock{}
	g := NewGenerator(SilenceFullband, &Filter{clk: fc}, nil)
	spec := &fakeSpectrum{fullband: 0.05} // near silence -> inverted near 0.95
	active := g.Check(spec, false)
	assert.True(t, active)
}

func TestGeneratorForceReleaseDeactivates(t *testing.T) {
	fc := &fakeClock{}
	g := NewGenerator(Bandpass, &Filter{clk: fc}, nil)
	spec := &fakeSpectrum{band: 0.9}
	g.Check(spec, false)
	assert.True(t, g.isActive)

	g.Check(spec, true)
	assert.False(t, g.isActive)
}
