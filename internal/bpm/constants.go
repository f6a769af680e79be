// Package bpm implements tempo detection: a continuous spectral-flux/onset
// beat tracker, a manual tap-tempo detector, and the OSC template controller
// that turns an accepted tempo into outgoing messages.
package bpm

const (
	// NumBPMSamples is the hop size H between successive analysis windows.
	NumBPMSamples = 256
	// NumBPMFFTSamples is the analysis window W (overlap ~87.5% at hop 256).
	NumBPMFFTSamples = 2048
	// SampleRate is the fixed PCM sample rate this detector assumes.
	SampleRate = 44100
	// SecondsToCache is the length of the spectral-flux/onset history.
	SecondsToCache = 5
	// FramesToCache is the number of hops held in the 5s rolling history.
	FramesToCache = (SampleRate / NumBPMSamples) * SecondsToCache
	// CallsToWait gates how often the expensive string/smoothing stages run.
	CallsToWait = 5
	// BPMUpdateRate is the scheduler tick rate the BPM detector runs at.
	BPMUpdateRate = 20
	// SecondsOfIntervalsToStore bounds how much smoothing history is kept.
	SecondsOfIntervalsToStore = 4
	// IntervalsToStore is the length of the recent-accepted-intervals ring.
	IntervalsToStore = SecondsOfIntervalsToStore * BPMUpdateRate / CallsToWait

	clusterWidthMs    = 30
	maxIntervalMs     = 2000
	minBeatsInString  = 4

	globalMinBPM = 50
	globalMaxBPM = 300

	onsetWindow         = 5 // w
	onsetMultiplier     = 3 // m
	pastThresholdWeight = 0.84
	averageThresholdDelta = 0.008

	minBPMTap = 30 // 60/MIN_BPM_TAP = 2s history discard window
)

var fractionsToCheck = []float64{2.0, 0.5, 0.25, 4.0, 4.0 / 3.0, 2.0 / 3.0, 3.0}

func bpmToMs(bpm float64) float64 { return 60000.0 / bpm }
func msToBPM(ms float64) float64  { return 60000.0 / ms }

func frequencyToIndex(freq int) int {
	return NumBPMFFTSamples * freq / SampleRate
}

func framesToMs(frames int) int {
	return frames * NumBPMSamples * 1000 / SampleRate
}

func msToFrames(ms int) int {
	return ms * SampleRate / NumBPMSamples / 1000
}

// bpmInRange maps bpm into [minBPM, 2*minBPM) by repeated doubling/halving,
// then enforces the global [50,300) bracket by the same rule.
func bpmInRange(bpm float64, minBPM int) float64 {
	if minBPM > 0 {
		for bpm < float64(minBPM) && bpm != 0 {
			bpm *= 2
		}
		for bpm >= float64(minBPM)*2 {
			bpm /= 2
		}
	}
	for bpm < globalMinBPM && bpm != 0 {
		bpm *= 2
	}
	for bpm >= globalMaxBPM {
		bpm /= 2
	}
	return bpm
}

// QuantizeMinBPM rounds an arbitrary minimum-bpm setting to one of the
// allowed bracket anchors {0, 50, 75, 100, 150}.
func QuantizeMinBPM(value int) int {
	switch {
	case value == 0:
		return 0
	case value < 63:
		return 50
	case value < 88:
		return 75
	case value < 125:
		return 100
	default:
		return 150
	}
}
