// Package feedback provides the GUI-facing telemetry sink: normalized
// spectrum, waveform colour, onset mask, and the six OSC level-feedback
// channels (spec.md §4.2/§5). It plays the role the teacher's internal/media
// package plays for OS media session integration — a small interface with a
// real implementation and a no-op stand-in for headless operation.
package feedback

// LevelFeedback holds the six values the 15 Hz feedback tick emits, in the
// fixed broadcast order: bass, lo-mid, hi-mid, high, envelope, silence.
type LevelFeedback struct {
	Bass     float64
	LoMid    float64
	HiMid    float64
	High     float64
	Envelope float64
	Silence  bool
}

// Color is the tri-band waveform colour (spec.md §3 Stage 1), normalized so
// the brightest channel is 255.
type Color struct {
	R, G, B uint8
}

// Observer receives analysis telemetry meant for an external GUI. None of
// its methods are on the audio-critical path; a slow or failing Observer
// must never block or destabilize the analysis scheduler, so every method
// returns an error for the caller to log and otherwise ignore.
type Observer interface {
	// UpdateSpectrum reports the latest normalized spectrum bins.
	UpdateSpectrum(bins []float64) error

	// UpdateWaveform reports the latest raw waveform samples for display.
	UpdateWaveform(samples []float64) error

	// UpdateOnsets reports which recent BPM analysis frames were flagged
	// as onsets, aligned to the BPM colour/flux history.
	UpdateOnsets(mask []bool) error

	// UpdateColor reports the current tri-band waveform colour.
	UpdateColor(c Color) error

	// UpdateLevelFeedback reports the 15 Hz level-feedback tick's values.
	UpdateLevelFeedback(lf LevelFeedback) error

	// Close releases any resources held by the observer.
	Close() error
}

// NoOpObserver discards every update. It is the default when no GUI is
// attached.
type NoOpObserver struct{}

// NewNoOpObserver returns an Observer that does nothing.
func NewNoOpObserver() *NoOpObserver {
	return &NoOpObserver{}
}

func (o *NoOpObserver) UpdateSpectrum(bins []float64) error         { return nil }
func (o *NoOpObserver) UpdateWaveform(samples []float64) error      { return nil }
func (o *NoOpObserver) UpdateOnsets(mask []bool) error              { return nil }
func (o *NoOpObserver) UpdateColor(c Color) error                   { return nil }
func (o *NoOpObserver) UpdateLevelFeedback(lf LevelFeedback) error  { return nil }
func (o *NoOpObserver) Close() error                                { return nil }
