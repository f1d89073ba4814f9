// Package regulator implements the temperature-regulation policy: a PID
// setpoint tracker layered over a hysteresis-banded relay decision, plus the
// rolling temperature history used for ETA computation and charting.
package regulator

import "time"

// PID gains and output clamp, fixed at design time. The numeric output is a
// trend indicator only; the relay decision is made by the hysteresis band.
const (
	Kp = 2.0
	Ki = 0.5
	Kd = 0.1

	outputMin = -100.0
	outputMax = 100.0
)

// PID is a textbook proportional-integral-derivative controller. It is not
// safe for concurrent use; only the control loop touches it.
type PID struct {
	setpoint float64

	integral float64
	lastErr  float64
	lastAt   time.Time
}

func NewPID(setpoint float64) *PID {
	return &PID{setpoint: setpoint}
}

func (p *PID) Setpoint() float64 { return p.setpoint }

// SetSetpoint retargets the controller without resetting accumulated state,
// so the target can be adjusted live without a discontinuity.
func (p *PID) SetSetpoint(v float64) { p.setpoint = v }

// Update advances the controller with a new measurement and returns the
// clamped control signal.
func (p *PID) Update(measured float64, now time.Time) float64 {
	err := p.setpoint - measured

	dt := 0.0
	if !p.lastAt.IsZero() {
		dt = now.Sub(p.lastAt).Seconds()
	}

	if dt > 0 {
		p.integral += err * dt
	}

	derivative := 0.0
	if dt > 0 {
		derivative = (err - p.lastErr) / dt
	}

	p.lastErr = err
	p.lastAt = now

	out := Kp*err + Ki*p.integral + Kd*derivative
	if out > outputMax {
		out = outputMax
	} else if out < outputMin {
		out = outputMin
	}
	return out
}

// NextHeaterState is the relay decision: turn ON below the lower band edge,
// OFF above the upper edge, hold inside the band. The dead zone is what
// keeps the solid-state relay from chattering.
func NextHeaterState(on bool, measured, setpoint, hysteresis float64) bool {
	switch {
	case !on && measured < setpoint-hysteresis:
		return true
	case on && measured > setpoint+hysteresis:
		return false
	default:
		return on
	}
}
