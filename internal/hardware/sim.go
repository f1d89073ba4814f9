package hardware

import "sync"

// SimBus is an in-memory actuator bus and fire sensor for tests and for
// running the controller on a machine without GPIO.
type SimBus struct {
	mu     sync.Mutex
	levels ActuatorLevels
	buzzer bool
	fire   bool
}

var (
	_ ActuatorBus = (*SimBus)(nil)
	_ FireSensor  = (*SimBus)(nil)
)

func NewSimBus() *SimBus { return &SimBus{} }

func (b *SimBus) SetHeater(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels.Heater = on
	return nil
}

func (b *SimBus) SetFans(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels.Fans = on
	return nil
}

func (b *SimBus) SetLights(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels.Lights = on
	return nil
}

func (b *SimBus) SetBuzzer(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buzzer = on
	return nil
}

func (b *SimBus) Levels() (ActuatorLevels, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels, nil
}

func (b *SimBus) FireDetected() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fire, nil
}

// SetFire simulates the smoke sensor tripping or clearing.
func (b *SimBus) SetFire(detected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fire = detected
}

// BuzzerOn reports the simulated buzzer state.
func (b *SimBus) BuzzerOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buzzer
}

// SimSensors is a scriptable sensor bus.
type SimSensors struct {
	mu       sync.Mutex
	readings []ProbeReading
}

var _ SensorBus = (*SimSensors)(nil)

func NewSimSensors(readings ...ProbeReading) *SimSensors {
	return &SimSensors{readings: readings}
}

func (s *SimSensors) ReadAll() []ProbeReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProbeReading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Set replaces all probe readings.
func (s *SimSensors) Set(readings ...ProbeReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = readings
}

// SetTemp points every probe at the same temperature.
func (s *SimSensors) SetTemp(tempC float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.readings {
		s.readings[i].TempC = tempC
		s.readings[i].Err = nil
	}
}
