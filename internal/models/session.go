package models

import "time"

// Phase is the controller lifecycle phase.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseWarmingUp   Phase = "warming_up"
	PhaseHeating     Phase = "heating"
	PhaseMaintaining Phase = "maintaining"
	PhaseCooling     Phase = "cooling"
)

// Active reports whether the phase belongs to a running print/cooldown cycle.
func (p Phase) Active() bool { return p != PhaseIdle && p != "" }

// SessionSnapshot is the durable record of an in-progress cycle, written
// periodically so a restarted process can offer to resume where it left off.
type SessionSnapshot struct {
	Phase         Phase     `json:"phase"`
	StartedAt     time.Time `json:"started_at"`
	DurationSec   int       `json:"duration_sec"`
	PausedSec     int       `json:"paused_sec"`
	IsPaused      bool      `json:"is_paused"`
	TargetTempC   float64   `json:"target_temp_c"`
	FansEnabled   bool      `json:"fans_enabled"`
	LoggingOn     bool      `json:"logging_enabled"`
	AdjustmentSec int       `json:"adjustment_sec"`
	HeaterManual  bool      `json:"heater_manual"`
	FansManual    bool      `json:"fans_manual"`
	HeaterOn      bool      `json:"heater_on"`
	FansOn        bool      `json:"fans_on"`
	SavedAt       time.Time `json:"saved_at"`
}

// Staleness windows for resume validation.
const (
	maxCooldownAge = 12 * time.Hour
	resumeGrace    = 5 * time.Minute
)

// ElapsedAtSave returns how much print time had been consumed when the
// snapshot was written, excluding paused intervals.
func (s *SessionSnapshot) ElapsedAtSave() time.Duration {
	return s.SavedAt.Sub(s.StartedAt) - time.Duration(s.PausedSec)*time.Second
}

// RemainingAtSave returns the print time that was still left when the
// snapshot was written, including live time adjustments.
func (s *SessionSnapshot) RemainingAtSave() time.Duration {
	return time.Duration(s.DurationSec+s.AdjustmentSec)*time.Second - s.ElapsedAtSave()
}

// ValidForResume reports whether the snapshot is still worth resuming at
// the given wall-clock time. A cooling snapshot expires after the longest
// plausible cooldown; a heating snapshot expires once more time has passed
// than was remaining at save, plus a short grace window.
func (s *SessionSnapshot) ValidForResume(now time.Time) bool {
	age := now.Sub(s.SavedAt)
	if s.Phase == PhaseCooling {
		return age <= maxCooldownAge
	}
	return age <= s.RemainingAtSave()+resumeGrace
}
