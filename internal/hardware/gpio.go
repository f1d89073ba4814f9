package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PinConfig names the BCM pins, configurable via config.yml.
type PinConfig struct {
	Heater int `mapstructure:"heater"`
	Fire   int `mapstructure:"fire"`
	Lights int `mapstructure:"lights"`
	Buzzer int `mapstructure:"buzzer"`
	Fan1   int `mapstructure:"fan1"`
	Fan2   int `mapstructure:"fan2"`
}

// DefaultPins matches the reference wiring: SSR on 17, MQ-2 DO on 18,
// lights relay on 22, buzzer on 27, filtration fans on 23/24.
func DefaultPins() PinConfig {
	return PinConfig{Heater: 17, Fire: 18, Lights: 22, Buzzer: 27, Fan1: 23, Fan2: 24}
}

// GPIOBus is the periph.io-backed actuator bus and fire sensor.
type GPIOBus struct {
	mu     sync.Mutex
	heater gpio.PinIO
	fire   gpio.PinIO
	lights gpio.PinIO
	buzzer gpio.PinIO
	fan1   gpio.PinIO
	fan2   gpio.PinIO
}

var (
	_ ActuatorBus = (*GPIOBus)(nil)
	_ FireSensor  = (*GPIOBus)(nil)
)

// NewGPIOBus initializes the host drivers and claims the configured pins.
func NewGPIOBus(pins PinConfig) (*GPIOBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	b := &GPIOBus{}
	for _, p := range []struct {
		name string
		num  int
		dst  *gpio.PinIO
	}{
		{"heater", pins.Heater, &b.heater},
		{"fire", pins.Fire, &b.fire},
		{"lights", pins.Lights, &b.lights},
		{"buzzer", pins.Buzzer, &b.buzzer},
		{"fan1", pins.Fan1, &b.fan1},
		{"fan2", pins.Fan2, &b.fan2},
	} {
		pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", p.num))
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %d (%s) not found", p.num, p.name)
		}
		*p.dst = pin
	}

	if err := b.fire.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure fire input: %w", err)
	}
	return b, nil
}

func level(on bool) gpio.Level {
	if on {
		return gpio.High
	}
	return gpio.Low
}

func (b *GPIOBus) SetHeater(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heater.Out(level(on))
}

// SetFans drives both filtration fans together.
func (b *GPIOBus) SetFans(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fan1.Out(level(on)); err != nil {
		return err
	}
	return b.fan2.Out(level(on))
}

func (b *GPIOBus) SetLights(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lights.Out(level(on))
}

func (b *GPIOBus) SetBuzzer(on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buzzer.Out(level(on))
}

// FireDetected reports the MQ-2 digital output; the sensor pulls the line
// low when it detects smoke.
func (b *GPIOBus) FireDetected() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fire.Read() == gpio.Low, nil
}

// Levels reads back the current output pin states so a restarted process
// can adopt whatever was left energized.
func (b *GPIOBus) Levels() (ActuatorLevels, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ActuatorLevels{
		Heater: b.heater.Read() == gpio.High,
		Fans:   b.fan1.Read() == gpio.High || b.fan2.Read() == gpio.High,
		Lights: b.lights.Read() == gpio.High,
	}, nil
}
