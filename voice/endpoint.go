package voice

import "time"

// SilenceWindow is how long the average must stay below the threshold
// before capture ends.
const SilenceWindow = 1000 * time.Millisecond

// MeterInterval is how often the volume average is sampled.
const MeterInterval = 100 * time.Millisecond

// Endpointer decides when the speaker has finished. It is a debounce,
// not a hard cutoff: the clock starts when the average drops below the
// threshold and resets the instant it rises back above, so any noise
// burst restarts the full window.
type Endpointer struct {
	threshold    float64
	window       time.Duration
	silenceSince time.Time
	inSilence    bool
	fired        bool
}

// NewEndpointer creates an endpointer with the given byte-scaled
// threshold and continuous-silence window.
func NewEndpointer(threshold float64, window time.Duration) *Endpointer {
	return &Endpointer{threshold: threshold, window: window}
}

// Observe feeds one volume sample taken at now. It returns true exactly
// once, when the average has stayed below the threshold for the full
// window.
func (e *Endpointer) Observe(avg float64, now time.Time) bool {
	if avg >= e.threshold {
		e.inSilence = false
		return false
	}
	if !e.inSilence {
		e.inSilence = true
		e.silenceSince = now
		return false
	}
	if e.fired {
		return false
	}
	if now.Sub(e.silenceSince) >= e.window {
		e.fired = true
		return true
	}
	return false
}

// Reset clears the endpointer for a fresh capture session.
func (e *Endpointer) Reset() {
	e.inSilence = false
	e.fired = false
}
