package models

import "time"

// Controller event types.
const (
	EventStart         = "START"
	EventStop          = "STOP"
	EventEmergencyStop = "EMERGENCY_STOP"
	EventPhaseChange   = "PHASE_CHANGE"
	EventFireAlarm     = "FIRE_ALARM"
	EventAlarmReset    = "ALARM_RESET"
	EventAutoStart     = "AUTO_START"
	EventAutoStop      = "AUTO_STOP"
	EventResume        = "RESUME"
	EventError         = "ERROR"
)

// ControllerEvent is a single append-only log entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
