package regulator

import (
	"sync"

	"chamberctl/internal/models"
)

const (
	// historyCap bounds the in-memory sample buffer; older samples are
	// discarded. At one sample per control tick this covers over an hour.
	historyCap = 1000

	// ETA needs a minimum history before the trend is trustworthy, and only
	// the most recent samples feed the rate estimate.
	etaMinSamples = 10
	etaWindow     = 24
)

// History is a bounded rolling buffer of temperature samples shared between
// the control loop (writer) and the status/chart consumers (readers).
type History struct {
	mu      sync.RWMutex
	samples []models.TemperatureSample
}

func NewHistory() *History {
	return &History{samples: make([]models.TemperatureSample, 0, historyCap)}
}

func (h *History) Append(s models.TemperatureSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, s)
	if len(h.samples) > historyCap {
		h.samples = h.samples[len(h.samples)-historyCap:]
	}
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Recent returns up to n of the newest samples, oldest first.
func (h *History) Recent(n int) []models.TemperatureSample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.samples) {
		n = len(h.samples)
	}
	out := make([]models.TemperatureSample, n)
	copy(out, h.samples[len(h.samples)-n:])
	return out
}

// Reset drops all samples. Called when a new heating session starts so the
// ETA never mixes trends from different runs.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

// ETASeconds estimates the time to reach target from the recent warming
// trend. Returns 0 when the history is too short, the chamber is not warming
// (rate <= 0), or the target is already reached.
func (h *History) ETASeconds(current, target float64) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.samples) < etaMinSamples {
		return 0
	}
	window := h.samples
	if len(window) > etaWindow {
		window = window[len(window)-etaWindow:]
	}

	first, last := window[0], window[len(window)-1]
	dt := last.Time.Sub(first.Time).Seconds()
	dTemp := last.TempC - first.TempC
	if dt <= 0 || dTemp <= 0 {
		return 0
	}

	remaining := target - current
	if remaining <= 0 {
		return 0
	}

	rate := dTemp / dt
	return int64(remaining / rate)
}

// WithinBand reports whether the measurement sits inside the comfort band
// around the setpoint used for warmup completion and the maintaining phase.
func WithinBand(measured, setpoint float64) bool {
	diff := measured - setpoint
	if diff < 0 {
		diff = -diff
	}
	return diff < maintainBandC
}

// maintainBandC is the half-width of the "at temperature" band.
const maintainBandC = 1.0
