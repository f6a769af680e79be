// Package ringbuffer holds the mono audio buffer that bridges the audio
// producer thread and the analysis scheduler.
package ringbuffer

import "sync"

// MonoBuffer is a fixed-capacity circular buffer of mono float64 samples in
// [-1, 1]. It is safe for concurrent use by a single producer and a single
// consumer: Put is called from the audio device thread, At/TotalPut from the
// scheduler thread.
type MonoBuffer struct {
	mu       sync.Mutex
	data     []float64
	capacity int
	next     int // absolute write position, wraps via modulo into data
	totalPut int64
}

// New returns a MonoBuffer with the given capacity. Capacity should be at
// least 4x the largest FFT window the buffer will feed.
func New(capacity int) *MonoBuffer {
	return &MonoBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Put downmixes an interleaved multichannel frame to mono and appends the
// resulting samples to the buffer, evicting the oldest samples as needed.
//
// channelCount == 1 is a passthrough; 2 averages pairs; N sums and divides
// by N. Frames with a sample count not divisible by channelCount are
// truncated to the last full frame.
func (b *MonoBuffer) Put(samples []float64, channelCount int) {
	if channelCount <= 0 {
		return
	}
	mono := downmix(samples, channelCount)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range mono {
		b.data[b.next%b.capacity] = s
		b.next++
		b.totalPut++
	}
}

func downmix(samples []float64, channelCount int) []float64 {
	switch channelCount {
	case 1:
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	case 2:
		n := len(samples) / 2
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = (samples[2*i] + samples[2*i+1]) / 2.0
		}
		return out
	default:
		n := len(samples) / channelCount
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			var sum float64
			for ch := 0; ch < channelCount; ch++ {
				sum += samples[i*channelCount+ch]
			}
			out[i] = sum / float64(channelCount)
		}
		return out
	}
}

// At returns the sample at absolute ring position i (mod capacity). The
// result is undefined if the slot named by i has already been evicted by a
// subsequent Put; callers must only read positions >= TotalPut()-Capacity().
func (b *MonoBuffer) At(i int64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := i % int64(b.capacity)
	if idx < 0 {
		idx += int64(b.capacity)
	}
	return b.data[idx]
}

// TotalPut returns the cumulative number of mono samples ever appended.
func (b *MonoBuffer) TotalPut() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalPut
}

// Capacity returns the buffer's fixed capacity.
func (b *MonoBuffer) Capacity() int {
	return b.capacity
}

// Last copies the most recent n samples (oldest first) into a new slice.
// It returns fewer than n samples if fewer than n have ever been written.
func (b *MonoBuffer) Last(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if int64(n) > b.totalPut {
		n = int(b.totalPut)
	}
	out := make([]float64, n)
	start := b.totalPut - int64(n)
	for i := 0; i < n; i++ {
		idx := (start + int64(i)) % int64(b.capacity)
		if idx < 0 {
			idx += int64(b.capacity)
		}
		out[i] = b.data[idx]
	}
	return out
}
