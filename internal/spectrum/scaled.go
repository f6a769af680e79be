package spectrum

import "math"

const (
	// MaxFFTValue is the maximum magnitude emitted by Analyzer for
	// WindowSize=4096, used to normalize summed per-band energy to [0,1].
	MaxFFTValue = 96

	// NyquistHz is the upper edge of the linear spectrum fed in.
	NyquistHz = 22050.0

	agcAveragingLength = 88
	agcNoiseThreshold  = 0.1
	agcHeadroom        = 0.1
	agcMinGain         = 0.5
	agcMaxGain         = 5.0
	// gain rises from 0 to target in ~3s, falls in ~1s, at a 44Hz tick rate.
	agcIncrementStep = 1.0 / (3.0 * 44.0)
	agcDecrementStep = 1.0 / (1.0 * 44.0)
)

// ScaledSpectrum rebands a linear FFT magnitude vector onto L logarithmically
// spaced bins covering [f0, 22050) Hz, with optional dB conversion and
// automatic gain control.
type ScaledSpectrum struct {
	baseFreq            float64
	scaledLength        int
	freqScaleFactor     float64
	logOfFreqScaleFactor float64

	gain          float64
	compression   float64
	convertToDB   bool
	agcEnabled    bool

	normSpectrum  []float64
	lastMaxValues []float64
	agcIdx        int
}

// NewScaledSpectrum builds a ScaledSpectrum with base frequency f0 (Hz) and
// scaledLength output bins.
func NewScaledSpectrum(f0 float64, scaledLength int) *ScaledSpectrum {
	s := &ScaledSpectrum{
		baseFreq:      f0,
		scaledLength:  scaledLength,
		gain:          1,
		compression:   1,
		agcEnabled:    true,
		normSpectrum:  make([]float64, scaledLength),
		lastMaxValues: make([]float64, agcAveragingLength),
	}
	s.freqScaleFactor = math.Pow(NyquistHz/f0, 1.0/float64(scaledLength))
	s.logOfFreqScaleFactor = math.Log(NyquistHz/f0) / float64(scaledLength)
	return s
}

// SetGain clamps and sets the manual gain multiplier.
func (s *ScaledSpectrum) SetGain(g float64) { s.gain = clamp(g, 0, 100) }

// SetCompression sets the compression exponent; a non-positive value is
// replaced by 1.
func (s *ScaledSpectrum) SetCompression(c float64) {
	if c <= 0 {
		c = 1
	}
	s.compression = c
}

// SetConvertToDB toggles the dB conversion branch.
func (s *ScaledSpectrum) SetConvertToDB(v bool) { s.convertToDB = v }

// SetAGCEnabled toggles automatic gain control.
func (s *ScaledSpectrum) SetAGCEnabled(v bool) { s.agcEnabled = v }

// Gain returns the current AGC/manual gain value.
func (s *ScaledSpectrum) Gain() float64 { return s.gain }

// UpdateWithLinearSpectrum rebands linearSpectrum (a magnitude vector
// covering [0, 22050) Hz) into the output array and updates the AGC state.
func (s *ScaledSpectrum) UpdateWithLinearSpectrum(linearSpectrum []float64) {
	linearLength := len(linearSpectrum)
	freq := s.baseFreq
	var maxValue float64

	for i := 0; i < s.scaledLength; i++ {
		nextFreq := s.baseFreq * math.Pow(s.freqScaleFactor, float64(i+1))
		startIndex := int(freq / NyquistHz * float64(linearLength))
		endIndex := int(nextFreq / NyquistHz * float64(linearLength))
		if endIndex > linearLength {
			endIndex = linearLength
		}
		if startIndex >= linearLength {
			startIndex = linearLength - 1
		}
		if startIndex < 0 {
			startIndex = 0
		}
		valuesTillNext := endIndex - startIndex
		if valuesTillNext < 1 {
			valuesTillNext = 1
		}
		freq = nextFreq

		energy := linearSpectrum[startIndex]
		for j := 1; j < valuesTillNext && startIndex+j < linearLength; j++ {
			energy += linearSpectrum[startIndex+j]
		}

		const maxPossibleEnergy = MaxFFTValue

		if s.convertToDB {
			dB := 20 * math.Log10(energy/maxPossibleEnergy) / math.Log10(10)
			valueBeforeGain := (dB + 60) / 60
			if valueBeforeGain > maxValue {
				maxValue = valueBeforeGain
			}
			scaled := clamp(valueBeforeGain*s.gain, 0, 1)
			s.normSpectrum[i] = math.Pow(scaled, 1/s.compression)
		} else {
			energy /= maxPossibleEnergy
			if energy > maxValue {
				maxValue = energy
			}
			energy *= s.gain
			scaled := clamp(energy, 0, 1)
			s.normSpectrum[i] = math.Pow(scaled, 1/s.compression)
		}
	}

	s.lastMaxValues[s.agcIdx%agcAveragingLength] = maxValue
	s.agcIdx++
	s.updateAGC()
}

func (s *ScaledSpectrum) updateAGC() {
	if !s.agcEnabled {
		return
	}

	var maxValue float64
	for _, v := range s.lastMaxValues {
		if v > maxValue {
			maxValue = v
		}
	}

	if maxValue < agcNoiseThreshold || maxValue <= 0 {
		return
	}

	requiredGain := (1 - agcHeadroom) / maxValue

	if requiredGain < s.gain {
		s.gain = math.Max(agcMinGain, math.Max(requiredGain, s.gain-agcDecrementStep))
	} else {
		s.gain = math.Min(agcMaxGain, math.Min(requiredGain, s.gain+agcIncrementStep))
	}
}

// GetIndexForFreq converts a frequency back to the corresponding output bin.
func (s *ScaledSpectrum) GetIndexForFreq(freq float64) int {
	idx := math.Log(freq/s.baseFreq) / s.logOfFreqScaleFactor
	return int(clamp(idx, 0, float64(s.scaledLength-1)))
}

// GetFreqAtPosition maps a normalized position in [0,1] back to a frequency.
func (s *ScaledSpectrum) GetFreqAtPosition(value float64) float64 {
	return s.baseFreq * math.Pow(s.freqScaleFactor, value*float64(s.scaledLength))
}

// GetMaxLevel returns the maximum normalized energy in the band centered on
// midFreq with fractional width (of the full scaled length).
func (s *ScaledSpectrum) GetMaxLevel(midFreq float64, width float64) float64 {
	midIndex := s.GetIndexForFreq(midFreq)
	startIndex := int(clamp(float64(midIndex)-float64(s.scaledLength)*width/2, 0, float64(s.scaledLength-1)))
	endIndex := int(clamp(float64(midIndex)+float64(s.scaledLength)*width/2, 0, float64(s.scaledLength-1)))
	if endIndex == startIndex {
		endIndex++
	}
	if endIndex >= s.scaledLength {
		endIndex = s.scaledLength - 1
	}
	var max float64
	for i := startIndex; i <= endIndex; i++ {
		if s.normSpectrum[i] > max {
			max = s.normSpectrum[i]
		}
	}
	return max
}

// GetMaxLevelFullband returns the maximum normalized energy across all bins.
func (s *ScaledSpectrum) GetMaxLevelFullband() float64 {
	var max float64
	for _, v := range s.normSpectrum {
		if v > max {
			max = v
		}
	}
	return max
}

// Bins returns the current normalized output array. Callers must not mutate
// the returned slice.
func (s *ScaledSpectrum) Bins() []float64 { return s.normSpectrum }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
