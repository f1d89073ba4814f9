package regulator

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestPID_OutputClamped(t *testing.T) {
	p := NewPID(200)
	now := time.Now()

	out := p.Update(0, now)
	if out != 100 {
		t.Fatalf("huge positive error must clamp to 100, got %v", out)
	}

	p = NewPID(0)
	out = p.Update(500, now)
	if out != -100 {
		t.Fatalf("huge negative error must clamp to -100, got %v", out)
	}
}

func TestPID_ConvergedIsNearZero(t *testing.T) {
	p := NewPID(60)
	now := time.Now()

	out := p.Update(60, now)
	if out != 0 {
		t.Fatalf("zero error on first sample must give 0, got %v", out)
	}
}

func TestPID_IntegralAccumulates(t *testing.T) {
	p := NewPID(60)
	now := time.Now()

	first := p.Update(58, now)
	second := p.Update(58, now.Add(5*time.Second))
	if second <= first {
		t.Fatalf("sustained error must grow the output: first=%v second=%v", first, second)
	}
}

func TestNextHeaterState_Band(t *testing.T) {
	const setpoint, hyst = 60.0, 2.0

	cases := []struct {
		name     string
		on       bool
		measured float64
		want     bool
	}{
		{"off and cold turns on", false, 57.9, true},
		{"off inside band stays off", false, 59.0, false},
		{"off above band stays off", false, 63.0, false},
		{"on inside band stays on", true, 61.0, true},
		{"on and hot turns off", true, 62.1, false},
		{"on just below upper edge stays on", true, 62.0, true},
		{"off just at lower edge stays off", false, 58.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextHeaterState(tc.on, tc.measured, setpoint, hyst); got != tc.want {
				t.Fatalf("NextHeaterState(%v, %v) = %v, want %v", tc.on, tc.measured, got, tc.want)
			}
		})
	}
}

// The relay must never toggle while the measurement stays inside the dead
// zone, regardless of the walk it takes there.
func TestNextHeaterState_NoChatterInsideBand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		setpoint := rapid.Float64Range(20, 80).Draw(t, "setpoint")
		hyst := rapid.Float64Range(0.5, 5).Draw(t, "hysteresis")
		on := rapid.Bool().Draw(t, "initial")

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			measured := rapid.Float64Range(setpoint-hyst, setpoint+hyst).Draw(t, "measured")
			next := NextHeaterState(on, measured, setpoint, hyst)
			if next != on {
				t.Fatalf("state flipped inside band: on=%v measured=%v setpoint=%v hyst=%v", on, measured, setpoint, hyst)
			}
			on = next
		}
	})
}

// Once the measurement leaves the band the decision is a pure function of
// position, independent of the previous state.
func TestNextHeaterState_OutsideBandDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		setpoint := rapid.Float64Range(20, 80).Draw(t, "setpoint")
		hyst := rapid.Float64Range(0.5, 5).Draw(t, "hysteresis")
		offset := rapid.Float64Range(hyst+0.001, hyst+30).Draw(t, "offset")

		below := setpoint - offset
		above := setpoint + offset
		if !NextHeaterState(false, below, setpoint, hyst) || !NextHeaterState(true, below, setpoint, hyst) {
			t.Fatalf("below band must always be ON")
		}
		if NextHeaterState(false, above, setpoint, hyst) || NextHeaterState(true, above, setpoint, hyst) {
			t.Fatalf("above band must always be OFF")
		}
	})
}
