// Package spectrum turns raw PCM samples into a perceptually rescaled,
// gain-controlled frequency spectrum.
package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// WindowSize is the FFT window used for the main ~44 Hz analysis tick.
const WindowSize = 4096

// Analyzer runs a windowed FFT over the most recent WindowSize samples and
// produces a half-spectrum magnitude vector.
type Analyzer struct {
	fft    *fourier.FFT
	window [WindowSize]float64
}

// NewAnalyzer builds an Analyzer with a precomputed Hann window.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{fft: fourier.NewFFT(WindowSize)}
	for i := range a.window {
		a.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(WindowSize-1)))
	}
	return a
}

// Magnitudes applies the Hann window to samples (which must have length
// WindowSize), runs the FFT, and returns mag[k] = sqrt(re^2+im^2)/10 for the
// half-spectrum, with mag[0] forced to 0.
func (a *Analyzer) Magnitudes(samples []float64) []float64 {
	windowed := make([]float64, WindowSize)
	for i := 0; i < WindowSize && i < len(samples); i++ {
		windowed[i] = samples[i] * a.window[i]
	}

	coeffs := a.fft.Coefficients(nil, windowed)

	mag := make([]float64, len(coeffs))
	for k, c := range coeffs {
		re, im := real(c), imag(c)
		mag[k] = math.Sqrt(re*re+im*im) / 10
	}
	if len(mag) > 0 {
		mag[0] = 0
	}
	return mag
}
