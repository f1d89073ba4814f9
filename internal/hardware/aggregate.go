package hardware

import (
	"errors"
	"fmt"
	"sync"

	"chamberctl/internal/models"
)

// ErrAllProbesFailed is returned when no probe produced a reading. It is
// recoverable: the control loop skips the tick and retries.
var ErrAllProbesFailed = errors.New("all temperature probes failed to read")

// Aggregator turns N independent probes into one authoritative chamber
// temperature. Individual probe failures are tolerated; the average is
// taken over whatever probes answered.
type Aggregator struct {
	bus SensorBus

	mu    sync.RWMutex
	names map[string]string
}

func NewAggregator(bus SensorBus) *Aggregator {
	return &Aggregator{bus: bus, names: map[string]string{}}
}

// SetProbeNames installs operator-assigned display names. Probes without a
// custom name fall back to "Probe N" by discovery order.
func (a *Aggregator) SetProbeNames(names map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = map[string]string{}
	for id, n := range names {
		if n != "" {
			a.names[id] = n
		}
	}
}

// Read returns the averaged chamber temperature plus per-probe detail.
// Probes that failed appear with a nil temp. ErrAllProbesFailed is the only
// error; the detail slice is still populated in that case.
func (a *Aggregator) Read() (float64, []models.ProbeTemp, error) {
	readings := a.bus.ReadAll()

	a.mu.RLock()
	defer a.mu.RUnlock()

	detail := make([]models.ProbeTemp, 0, len(readings))
	var sum float64
	var good int
	for i, r := range readings {
		pt := models.ProbeTemp{ID: r.ID, Name: a.displayName(r.ID, i)}
		if r.Err == nil {
			t := r.TempC
			pt.TempC = &t
			sum += t
			good++
		}
		detail = append(detail, pt)
	}

	if good == 0 {
		return 0, detail, ErrAllProbesFailed
	}
	return sum / float64(good), detail, nil
}

func (a *Aggregator) displayName(id string, index int) string {
	if n, ok := a.names[id]; ok {
		return n
	}
	return defaultProbeName(index)
}

func defaultProbeName(index int) string {
	return fmt.Sprintf("Probe %d", index+1)
}
