// Package hardware abstracts the chamber's physical I/O: the relay outputs
// (heater SSR, filtration fans, lights, buzzer), the fire sensor input, and
// the temperature probes. Two implementations exist: the GPIO bus for the
// real appliance and an in-memory bus for tests and bench runs.
package hardware

// ActuatorLevels is a read-back of the output pins, used once at startup to
// reconcile logical state with whatever a previous process left energized.
type ActuatorLevels struct {
	Heater bool
	Fans   bool
	Lights bool
}

// ActuatorBus drives the binary outputs. Implementations must be safe for
// concurrent use; the controller is the only writer but the safety monitor
// runs on its own goroutine.
type ActuatorBus interface {
	SetHeater(on bool) error
	SetFans(on bool) error
	SetLights(on bool) error
	SetBuzzer(on bool) error
	Levels() (ActuatorLevels, error)
}

// FireSensor reads the fire/smoke digital input.
type FireSensor interface {
	FireDetected() (bool, error)
}

// ProbeReading is one temperature probe's raw result.
type ProbeReading struct {
	ID    string
	TempC float64
	Err   error
}

// SensorBus reads every probe, reporting per-probe failures instead of
// failing the whole read.
type SensorBus interface {
	ReadAll() []ProbeReading
}
