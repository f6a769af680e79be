package bpm

// TapDetector infers tempo from the mean spacing of user-issued tap events.
// Grounded on BPMTapDetector.cpp: it holds a rolling history of the last 3
// tap timestamps (seconds since construction/reset) and discards that history
// whenever the gap since the last tap exceeds 60/minBPMTap seconds.
type TapDetector struct {
	now    func() float64 // seconds elapsed since detector start; injectable for tests
	start  float64
	beats  []float64
	bpm    float64
	minBPM int
	osc    Controller
}

// NewTapDetector builds a TapDetector that sends accepted tempos to osc.
// nowFn should return monotonic elapsed seconds (e.g. time.Since(t0).Seconds()).
func NewTapDetector(osc Controller, nowFn func() float64) *TapDetector {
	return &TapDetector{now: nowFn, minBPM: 75, osc: osc}
}

// SetMinBPM quantizes and applies a new minimum-tempo bracket.
func (t *TapDetector) SetMinBPM(value int) {
	t.minBPM = QuantizeMinBPM(value)
	t.bpm = bpmInRange(t.bpm, t.minBPM)
}

// BPM returns the last computed tap tempo (0 if fewer than 2 taps recorded).
func (t *TapDetector) BPM() float64 { return t.bpm }

// Tap registers one tap event at the current time.
func (t *TapDetector) Tap() {
	beatTime := t.now() - t.start

	if len(t.beats) > 0 {
		secSinceLast := beatTime - t.beats[len(t.beats)-1]
		if secSinceLast > 60.0/minBPMTap {
			t.beats = nil
		}
	}
	t.beats = append(t.beats, beatTime)
	const tapHistoryLength = 3
	if len(t.beats) > tapHistoryLength {
		t.beats = t.beats[len(t.beats)-tapHistoryLength:]
	}

	if len(t.beats) < 2 {
		return
	}

	var sum float64
	for i := 1; i < len(t.beats); i++ {
		sum += t.beats[i] - t.beats[i-1]
	}
	avg := sum / float64(len(t.beats)-1)
	t.bpm = bpmInRange((1.0/avg)*60.0, t.minBPM)
	if t.osc != nil {
		t.osc.TransmitBPM(t.bpm)
	}
}

// Reset clears tap history, zeroes the computed tempo and restarts the
// detector's clock.
func (t *TapDetector) Reset() {
	t.start = t.now()
	t.beats = nil
	t.bpm = 0
}
