package bpm

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Color is the coarse tri-band waveform colour computed alongside spectral
// flux, exposed for GUI feedback only (spec.md §4.6 Stage 1).
type Color struct{ R, G, B uint8 }

// Source is the minimal PCM-reading surface the detector needs.
type Source interface {
	At(i int64) float64
	TotalPut() int64
}

// Controller receives accepted tempos for transmission.
type Controller interface {
	TransmitBPM(bpm float64)
}

// ContinuousDetector implements the four-stage spectral-flux beat tracker:
// flux -> onsets -> beat strings -> smoothed tempo.
type ContinuousDetector struct {
	buffer Source
	osc    Controller

	fft    *fourier.FFT
	window [NumBPMFFTSamples]float64

	nextWindowStart int64

	fluxBuffer  []float64 // FIFO, len <= FramesToCache
	onsetBuffer []bool    // recomputed fully each updateOnsets, len FramesToCache
	normalized  []float64 // recomputed fully each updateOnsets, len FramesToCache
	waveColors  []Color

	lastMagnitude []float64

	refreshesSinceCalculation int
	framesSinceLastDetection  int

	minBPM int
	bpm    float64

	beatStrings []*beatString

	lastIntervals       []float64 // FIFO, len <= IntervalsToStore
	lastWinningInterval float64

	transmitBPM bool
}

// NewContinuousDetector builds a detector reading from buffer and sending
// accepted tempos to osc.
func NewContinuousDetector(buffer Source, osc Controller) *ContinuousDetector {
	d := &ContinuousDetector{
		buffer:      buffer,
		osc:         osc,
		fft:         fourier.NewFFT(NumBPMFFTSamples),
		minBPM:      75,
		transmitBPM: true,
	}
	for i := range d.window {
		d.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(NumBPMFFTSamples-1)))
	}
	return d
}

// SetMinBPM quantizes and applies a new minimum-tempo bracket.
func (d *ContinuousDetector) SetMinBPM(value int) {
	d.minBPM = QuantizeMinBPM(value)
	d.bpm = bpmInRange(d.bpm, d.minBPM)
}

// SetTransmitBPM toggles whether accepted tempos are forwarded to the
// controller (the detector still tracks bpm internally either way).
func (d *ContinuousDetector) SetTransmitBPM(v bool) { d.transmitBPM = v }

// BPM returns the last accepted tempo (0 if none yet).
func (d *ContinuousDetector) BPM() float64 { return d.bpm }

// IsOld reports whether more than ~5s have passed without a new tempo.
func (d *ContinuousDetector) IsOld() bool {
	return d.framesSinceLastDetection/BPMUpdateRate > 5
}

// LatestColor returns the most recently computed waveform colour and
// whether one has been computed yet.
func (d *ContinuousDetector) LatestColor() (Color, bool) {
	if len(d.waveColors) == 0 {
		return Color{}, false
	}
	return d.waveColors[len(d.waveColors)-1], true
}

// OnsetMask returns a copy of the current onset boolean mask, aligned to
// the flux/colour history. Empty until the flux buffer has primed.
func (d *ContinuousDetector) OnsetMask() []bool {
	out := make([]bool, len(d.onsetBuffer))
	copy(out, d.onsetBuffer)
	return out
}

// ResetCache clears all history and re-anchors to the buffer's current
// write position.
func (d *ContinuousDetector) ResetCache() {
	d.bpm = 0
	d.onsetBuffer = nil
	d.fluxBuffer = nil
	d.waveColors = nil
	d.lastMagnitude = nil
	d.lastIntervals = nil
	d.nextWindowStart = d.buffer.TotalPut()
}

// DetectBPM runs one tick of the detection pipeline: catch up on any new
// hop windows, then run onset detection every tick and the expensive
// string/smoothing stages every CallsToWait ticks.
func (d *ContinuousDetector) DetectBPM() {
	for d.buffer.TotalPut()-d.nextWindowStart >= NumBPMFFTSamples {
		d.updateSpectralFlux(d.nextWindowStart)
		d.nextWindowStart += NumBPMSamples
	}

	if len(d.fluxBuffer) < FramesToCache {
		return
	}

	d.updateOnsets()

	d.refreshesSinceCalculation++
	if d.refreshesSinceCalculation >= CallsToWait {
		d.refreshesSinceCalculation = 0
	} else {
		return
	}

	d.updateStrings()
	d.evaluateStrings()
}

func (d *ContinuousDetector) updateSpectralFlux(fromIndex int64) {
	windowed := make([]float64, NumBPMFFTSamples)
	for i := 0; i < NumBPMFFTSamples; i++ {
		windowed[i] = d.buffer.At(fromIndex+int64(i)) * d.window[i]
	}

	coeffs := d.fft.Coefficients(nil, windowed)
	half := len(coeffs)
	mag := make([]float64, half)
	for k, c := range coeffs {
		re, im := real(c), imag(c)
		mag[k] = math.Sqrt(re*re + im*im)
	}

	if d.lastMagnitude == nil {
		d.lastMagnitude = make([]float64, half)
	}

	var flux float64
	for k := 0; k < half; k++ {
		if mag[k] > d.lastMagnitude[k] {
			flux += mag[k] - d.lastMagnitude[k]
		}
	}

	d.pushFlux(flux)
	d.pushColor(d.computeColor(mag))
	d.lastMagnitude = mag
}

func (d *ContinuousDetector) pushFlux(v float64) {
	d.fluxBuffer = append(d.fluxBuffer, v)
	if len(d.fluxBuffer) > FramesToCache {
		d.fluxBuffer = d.fluxBuffer[len(d.fluxBuffer)-FramesToCache:]
	}
}

func (d *ContinuousDetector) pushColor(c Color) {
	d.waveColors = append(d.waveColors, c)
	if len(d.waveColors) > FramesToCache {
		d.waveColors = d.waveColors[len(d.waveColors)-FramesToCache:]
	}
}

// computeColor derives a coarse tri-band RGB colour from the current
// magnitude spectrum, smoothed 50/50 with the previous frame's colour.
func (d *ContinuousDetector) computeColor(mag []float64) Color {
	var r, g, b float64
	i200 := frequencyToIndex(200)
	i2000 := frequencyToIndex(2000)

	for i := 0; i < i200 && i < len(mag); i++ {
		r += math.Abs(mag[i]) * 1000
	}
	for i := i200; i < i2000 && i < len(mag); i += 10 {
		g += math.Abs(mag[i]) * 5000
	}
	for i := i2000; i < len(mag); i += 20 {
		b += math.Abs(mag[i]) * 10000
	}

	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}

	if max > 0 && len(d.waveColors) > 0 {
		prev := d.waveColors[len(d.waveColors)-1]
		r = r*128/max + float64(prev.R)/2
		g = g*128/max + float64(prev.G)/2
		b = b*128/max + float64(prev.B)/2
	}

	return Color{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// updateOnsets subtracts the mean from the flux history and divides by the
// square root of the sum of squared (not mean-subtracted) values, floored at
// 20, then applies the three Dixon onset criteria.
func (d *ContinuousDetector) updateOnsets() {
	n := FramesToCache
	d.onsetBuffer = make([]bool, n)
	d.normalized = make([]float64, n)

	var sum float64
	for _, v := range d.fluxBuffer {
		sum += v
	}
	average := sum / float64(n)

	var sumSquares float64
	for _, v := range d.fluxBuffer {
		sumSquares += v * v
	}
	stdDev := math.Sqrt(sumSquares)
	if stdDev < 20 {
		stdDev = 20
	}

	for i := 0; i < n; i++ {
		d.normalized[i] = (d.fluxBuffer[i] - average) / stdDev
	}

	const w = onsetWindow
	const m = onsetMultiplier

	pastThreshold := d.normalized[m*w-1]

	for nIdx := m * w; nIdx < n-w; nIdx++ {
		pastThresholdNew := math.Max(d.normalized[nIdx-1], pastThresholdWeight*pastThreshold+(1-pastThresholdWeight)*d.normalized[nIdx-1])
		pastThreshold = pastThresholdNew

		if d.normalized[nIdx] < pastThreshold {
			continue
		}

		localMaximum := true
		for k := nIdx - w; k <= nIdx+w; k++ {
			if d.normalized[nIdx] < d.normalized[k] {
				localMaximum = false
				break
			}
		}
		if !localMaximum {
			continue
		}

		var avgThreshold float64
		for k := nIdx - w*m; k < nIdx+w; k++ {
			avgThreshold += d.normalized[k]
		}
		avgThreshold /= float64(m*w + w + 1)
		avgThreshold += averageThresholdDelta

		if d.normalized[nIdx] < avgThreshold {
			continue
		}

		d.onsetBuffer[nIdx] = true
	}
}

// updateStrings finds chains of evenly spaced onsets ("beat strings") per
// spec.md §4.6 Stage 3.
func (d *ContinuousDetector) updateStrings() {
	d.beatStrings = nil
	n := FramesToCache

	for i := 0; i < n; i++ {
		if !d.onsetBuffer[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !d.onsetBuffer[j] {
				continue
			}

			interval := float64(framesToMs(j - i))
			if !(clusterWidthMs < interval && interval < maxIntervalMs) {
				continue
			}
			score := math.Min(d.normalized[i], d.normalized[j])
			str := newBeatString(interval, score)

			lastOnsetIndex := j
			minInterval := str.averageInterval - clusterWidthMs
			maxInterval := str.averageInterval + clusterWidthMs
			skippedBeat := false

			for k := j + msToFrames(int(minInterval)); k < n; k++ {
				curInterval := float64(framesToMs(k - lastOnsetIndex))

				if curInterval > maxInterval {
					if skippedBeat {
						break
					}
					lastOnsetIndex += msToFrames(int(str.averageInterval))
					skippedBeat = true
					skip := msToFrames(int(minInterval-clusterWidthMs)) - 1
					if skip > 0 {
						k += skip
					}
					continue
				}

				if d.onsetBuffer[k] {
					sc := math.Min(d.normalized[lastOnsetIndex], d.normalized[k])
					str.addInterval(curInterval, sc)
					lastOnsetIndex = k

					minInterval = str.averageInterval - clusterWidthMs
					maxInterval = str.averageInterval + clusterWidthMs

					skip := msToFrames(int(minInterval)) - 1
					if skip > 0 {
						k += skip
					}
				}
			}

			if str.size < minBeatsInString-1 {
				continue
			}

			discard := false
			for idx, existing := range d.beatStrings {
				if math.Abs(existing.averageInterval-str.averageInterval) < clusterWidthMs {
					if existing.score > str.score {
						discard = true
					} else {
						d.beatStrings = append(d.beatStrings[:idx], d.beatStrings[idx+1:]...)
					}
					break
				}
			}
			if !discard {
				d.beatStrings = append(d.beatStrings, str)
			}
		}
	}
}

// plausibleStringForInterval looks for a string near interval with
// sufficient support to justify treating it as the real tempo after a
// drastic apparent change. Threshold matches the original's 0.40*maxScore
// guard (see DESIGN.md's Open Question discussion).
func (d *ContinuousDetector) plausibleStringForInterval(interval, maxScore float64) *beatString {
	for _, s := range d.beatStrings {
		if math.Abs(s.averageInterval-interval) < clusterWidthMs && s.score >= 0.40*maxScore {
			return s
		}
	}
	return nil
}

// evaluateStrings picks the highest-scoring string, applies fraction-based
// plausibility smoothing, then clusters recent accepted intervals and only
// emits a new tempo if one cluster holds more than 75% of IntervalsToStore.
func (d *ContinuousDetector) evaluateStrings() {
	var maxString *beatString
	for _, s := range d.beatStrings {
		if maxString == nil || s.score > maxString.score {
			maxString = s
		}
	}
	if maxString == nil {
		d.framesSinceLastDetection += CallsToWait
		return
	}

	newInterval := maxString.averageInterval

	if len(d.lastIntervals) > 0 && math.Abs(newInterval-d.lastWinningInterval) > clusterWidthMs {
		for _, fraction := range fractionsToCheck {
			if math.Abs(fraction*newInterval-d.lastWinningInterval) < 2*clusterWidthMs {
				plausible := d.plausibleStringForInterval(d.lastWinningInterval, maxString.score/fraction)
				if plausible != nil {
					newInterval = plausible.averageInterval
					break
				}
			}
		}
	}

	d.lastIntervals = append(d.lastIntervals, newInterval)
	if len(d.lastIntervals) > IntervalsToStore {
		d.lastIntervals = d.lastIntervals[len(d.lastIntervals)-IntervalsToStore:]
	}

	var clusters []*intervalCluster
	for _, interval := range d.lastIntervals {
		var closest *intervalCluster
		closestDistance := math.MaxFloat64
		for _, c := range clusters {
			dist := math.Abs(c.averageInterval - interval)
			if dist < clusterWidthMs && dist < closestDistance {
				closestDistance = dist
				closest = c
			}
		}
		if closest != nil {
			closest.addInterval(interval)
		} else {
			clusters = append(clusters, newIntervalCluster(interval))
		}
	}

	var maxCluster *intervalCluster
	for _, c := range clusters {
		if maxCluster == nil || c.clusterScore() > maxCluster.clusterScore() {
			maxCluster = c
		}
	}

	if maxCluster != nil && maxCluster.clusterScore()*4 > 3*float64(IntervalsToStore) {
		d.lastWinningInterval = maxCluster.averageInterval
		d.bpm = bpmInRange(msToBPM(maxCluster.averageInterval), d.minBPM)
		if d.transmitBPM && d.osc != nil {
			d.osc.TransmitBPM(d.bpm)
		}
		d.framesSinceLastDetection = 0
		return
	}

	d.framesSinceLastDetection += CallsToWait
}
