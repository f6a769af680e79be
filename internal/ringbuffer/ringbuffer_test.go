package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDownmixPassthrough(t *testing.T) {
	b := New(16)
	b.Put([]float64{0.1, 0.2, 0.3}, 1)
	assert.Equal(t, int64(3), b.TotalPut())
	assert.InDelta(t, 0.1, b.At(0), 1e-9)
	assert.InDelta(t, 0.3, b.At(2), 1e-9)
}

func TestDownmixStereo(t *testing.T) {
	b := New(16)
	b.Put([]float64{1.0, 0.0, 0.5, 0.5}, 2)
	require.Equal(t, int64(2), b.TotalPut())
	assert.InDelta(t, 0.5, b.At(0), 1e-9)
	assert.InDelta(t, 0.5, b.At(1), 1e-9)
}

func TestDownmixMultichannel(t *testing.T) {
	b := New(16)
	b.Put([]float64{1, 2, 3, 4}, 4)
	assert.InDelta(t, 2.5, b.At(0), 1e-9)
}

func TestRingBufferFidelity(t *testing.T) {
	cap := 8
	b := New(cap)
	k := 20
	samples := make([]float64, k)
	for i := range samples {
		samples[i] = float64(i)
	}
	b.Put(samples, 1)

	assert.InDelta(t, float64(k-1), b.At(int64(k-1)), 1e-9)
	assert.InDelta(t, float64(k-cap), b.At(int64(k-cap)), 1e-9)
}

// Property 1: downmix correctness for arbitrary channel counts.
func TestPropertyDownmixCorrectness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		channels := rapid.IntRange(1, 6).Draw(rt, "channels")
		frames := rapid.IntRange(1, 50).Draw(rt, "frames")
		samples := make([]float64, frames*channels)
		for i := range samples {
			samples[i] = rapid.Float64Range(-1, 1).Draw(rt, "sample")
		}

		b := New((frames + 1) * channels)
		b.Put(samples, channels)

		require.Equal(rt, int64(frames), b.TotalPut())
		for f := 0; f < frames; f++ {
			var sum float64
			for ch := 0; ch < channels; ch++ {
				sum += samples[f*channels+ch]
			}
			want := sum / float64(channels)
			assert.InDelta(rt, want, b.At(int64(f)), 1e-9)
		}
	})
}

// Property 2: ring buffer fidelity after wraparound, for arbitrary capacity/overrun.
func TestPropertyRingBufferFidelity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(rt, "capacity")
		k := rapid.IntRange(capacity, capacity*4).Draw(rt, "k")

		b := New(capacity)
		samples := make([]float64, k)
		for i := range samples {
			samples[i] = float64(i)
		}
		b.Put(samples, 1)

		assert.InDelta(rt, float64(k-1), b.At(int64(k-1)), 1e-9)
		assert.InDelta(rt, float64(k-capacity), b.At(int64(k-capacity)), 1e-9)
	})
}
