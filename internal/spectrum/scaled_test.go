package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestIndexForFreqBounds(t *testing.T) {
	s := NewScaledSpectrum(20, 200)
	assert.Equal(t, 0, s.GetIndexForFreq(20))
	assert.Equal(t, 199, s.GetIndexForFreq(22050))
}

func TestFreqAtPositionMonotonic(t *testing.T) {
	s := NewScaledSpectrum(20, 200)
	prev := -1.0
	for i := 0; i <= 200; i++ {
		f := s.GetFreqAtPosition(float64(i) / 200.0)
		assert.Greater(t, f, prev)
		prev = f
	}
}

// Property 3: AGC gain stays within bounds. Freezing below the noise floor
// is checked by TestAGCFrozenBelowNoiseFloor.
func TestPropertyAGCBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewScaledSpectrum(20, 50)
		linear := make([]float64, 512)

		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			amp := rapid.Float64Range(0, 300).Draw(rt, "amp")
			for j := range linear {
				linear[j] = amp
			}
			before := s.Gain()
			s.UpdateWithLinearSpectrum(linear)
			assert.GreaterOrEqual(rt, s.Gain(), agcMinGain-1e-9)
			assert.LessOrEqual(rt, s.Gain(), agcMaxGain+1e-9)
			_ = before
		}
	})
}

func TestAGCFrozenBelowNoiseFloor(t *testing.T) {
	s := NewScaledSpectrum(20, 50)
	linear := make([]float64, 512) // all zero -> below noise threshold
	s.SetGain(1)
	before := s.Gain()
	s.UpdateWithLinearSpectrum(linear)
	assert.Equal(t, before, s.Gain())
}

func TestMaxLevelClampedRange(t *testing.T) {
	s := NewScaledSpectrum(20, 200)
	linear := make([]float64, 2049)
	for i := range linear {
		linear[i] = 50
	}
	s.UpdateWithLinearSpectrum(linear)
	level := s.GetMaxLevel(1000, 0.1)
	assert.False(t, math.IsNaN(level))
}
