package feedback

import "log"

// LoggingObserver logs every update with a "[FEEDBACK]" tag, matching the
// bracketed-tag logging convention used across this program's subsystems.
// Useful for headless debugging when no real GUI bridge is attached.
type LoggingObserver struct {
	logger *log.Logger
}

// NewLoggingObserver wraps logger, or the standard logger if nil.
func NewLoggingObserver(logger *log.Logger) *LoggingObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) UpdateSpectrum(bins []float64) error {
	o.logger.Printf("[FEEDBACK] spectrum: %d bins", len(bins))
	return nil
}

func (o *LoggingObserver) UpdateWaveform(samples []float64) error {
	o.logger.Printf("[FEEDBACK] waveform: %d samples", len(samples))
	return nil
}

func (o *LoggingObserver) UpdateOnsets(mask []bool) error {
	count := 0
	for _, v := range mask {
		if v {
			count++
		}
	}
	o.logger.Printf("[FEEDBACK] onsets: %d/%d set", count, len(mask))
	return nil
}

func (o *LoggingObserver) UpdateColor(c Color) error {
	o.logger.Printf("[FEEDBACK] color: #%02x%02x%02x", c.R, c.G, c.B)
	return nil
}

func (o *LoggingObserver) UpdateLevelFeedback(lf LevelFeedback) error {
	o.logger.Printf("[FEEDBACK] level: bass=%.3f lomid=%.3f himid=%.3f high=%.3f env=%.3f silence=%v",
		lf.Bass, lf.LoMid, lf.HiMid, lf.High, lf.Envelope, lf.Silence)
	return nil
}

func (o *LoggingObserver) Close() error { return nil }
