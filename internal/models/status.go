package models

import "time"

// ProbeTemp is one probe's reading as shown to observers. Temp is nil when
// the probe failed to read.
type ProbeTemp struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	TempC *float64 `json:"temp"`
}

// TemperatureSample is one point of the rolling history used for ETA
// computation and charting.
type TemperatureSample struct {
	Time     time.Time `json:"time"`
	TempC    float64   `json:"temp"`
	Setpoint float64   `json:"setpoint"`
}

// PrinterStatus is the sticky projection of the remote printer's last known
// state. Each field keeps its previous value when an upstream message omits
// it.
type PrinterStatus struct {
	Connected     bool      `json:"printer_connected"`
	Phase         string    `json:"printer_phase"` // idle, printing, paused, finish
	File          string    `json:"printer_file"`
	Material      string    `json:"printer_material"`
	Progress      int       `json:"printer_progress"`
	RemainingSec  int       `json:"printer_time_remaining"`
	NozzleTempC   float64   `json:"printer_nozzle_temp"`
	BedTempC      float64   `json:"printer_bed_temp"`
	ChamberTempC  float64   `json:"printer_chamber_temp"`
	AMSSlots      [4]string `json:"ams_slots"`
	ExternalSpool string    `json:"external_spool"`
	TrayNow       int       `json:"tray_now"`
	TrayTarget    int       `json:"tray_tar"`
}

// StatusSnapshot is what the status publisher emits. Sequence strictly
// increases per published snapshot; consumers must drop anything whose
// sequence is not greater than the last one they accepted.
type StatusSnapshot struct {
	Sequence             uint64      `json:"sequence"`
	Phase                Phase       `json:"phase"`
	CurrentTempC         float64     `json:"current_temp"`
	SensorTemps          []ProbeTemp `json:"sensor_temps"`
	Setpoint             float64     `json:"setpoint"`
	HeaterOn             bool        `json:"heater_on"`
	HeaterManual         bool        `json:"heater_manual"`
	FansOn               bool        `json:"fans_on"`
	FansManual           bool        `json:"fans_manual"`
	LightsOn             bool        `json:"lights_on"`
	EmergencyStop        bool        `json:"emergency_stop"`
	PrintActive          bool        `json:"print_active"`
	PrintPaused          bool        `json:"print_paused"`
	AwaitingConfirmation bool        `json:"awaiting_preheat_confirmation"`
	PendingResume        bool        `json:"pending_resume"`
	ETAToTargetSec       int         `json:"eta_to_target"`
	PrintRemainingSec    int         `json:"print_time_remaining"`
	CooldownRemainingSec int         `json:"cooldown_time_remaining"`
	AllSensorsFailed     bool        `json:"sensor_fault"`

	PrinterStatus // printer_* fields, flattened
}
