package models

// MaterialProfile maps a filament material to chamber parameters.
type MaterialProfile struct {
	TempC float64 `json:"temp"`
	Fans  bool    `json:"fans"`
}

// Preset is a saved target/duration combination selectable from the UI.
type Preset struct {
	Name    string  `json:"name"`
	TempC   float64 `json:"temp"`
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
}

// Settings holds every user-tunable parameter. Values outside sane ranges
// are accepted and clamped only at actuation points.
type Settings struct {
	TargetTempC         float64           `json:"desired_temp"`
	PrintHours          int               `json:"print_hours"`
	PrintMinutes        int               `json:"print_minutes"`
	FansEnabled         bool              `json:"fans_enabled"`
	LightsEnabled       bool              `json:"lights_enabled"`
	LoggingEnabled      bool              `json:"logging_enabled"`
	HysteresisC         float64           `json:"hysteresis"`
	CooldownHours       float64           `json:"cooldown_hours"`
	CooldownTargetC     float64           `json:"cooldown_target_temp"`
	TempUnit            string            `json:"temp_unit"`
	RequireConfirmation bool              `json:"require_preheat_confirmation"`
	SkipPreheat         bool              `json:"skip_preheat"`
	ProbeNames          map[string]string `json:"probe_names"`
	Presets             []Preset          `json:"presets"`

	// Printer integration.
	PrinterEnabled    bool                       `json:"printer_enabled"`
	PrinterIP         string                     `json:"printer_ip"`
	PrinterAccessCode string                     `json:"printer_access_code"`
	PrinterSerial     string                     `json:"printer_serial"`
	AutoStartEnabled  bool                       `json:"auto_start_enabled"`
	MaterialMappings  map[string]MaterialProfile `json:"material_mappings"`
	SlotOverrides     map[string]string          `json:"ams_slot_overrides"`
	ExternalSpool     string                     `json:"external_spool_material"`
}

// PrintDurationSec returns the configured print duration in seconds.
func (s Settings) PrintDurationSec() int {
	return s.PrintHours*3600 + s.PrintMinutes*60
}

// DefaultHysteresisC is used whenever the configured band is zero or negative.
const DefaultHysteresisC = 2.0

// Hysteresis returns the configured band clamped to a usable value.
func (s Settings) Hysteresis() float64 {
	if s.HysteresisC <= 0 {
		return DefaultHysteresisC
	}
	return s.HysteresisC
}

// DefaultSettings returns the built-in configuration. Defaults live in code,
// not in a data file; a persisted document only overrides what it names.
func DefaultSettings() Settings {
	return Settings{
		TargetTempC:     60.0,
		PrintHours:      8,
		FansEnabled:     true,
		LightsEnabled:   true,
		HysteresisC:     2.0,
		CooldownHours:   4.0,
		CooldownTargetC: 21.0,
		TempUnit:        "C",
		ProbeNames:      map[string]string{},
		Presets: []Preset{
			{Name: "ABS Standard", TempC: 60, Hours: 8},
			{Name: "ASA Standard", TempC: 65, Hours: 10},
			{Name: "Quick Test", TempC: 40, Minutes: 30},
		},
		AutoStartEnabled: true,
		MaterialMappings: map[string]MaterialProfile{
			"PC":    {TempC: 60, Fans: false},
			"ABS":   {TempC: 60, Fans: true},
			"ASA":   {TempC: 65, Fans: true},
			"PETG":  {TempC: 40, Fans: true},
			"PLA":   {TempC: 0, Fans: false},
			"HIPS":  {TempC: 60, Fans: true},
			"TPU":   {TempC: 40, Fans: false},
			"NYLON": {TempC: 60, Fans: false},
		},
		SlotOverrides: map[string]string{"0": "", "1": "", "2": "", "3": ""},
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged;
// merge semantics are explicit rather than reflective.
type SettingsPatch struct {
	TargetTempC         *float64                   `json:"desired_temp"`
	PrintHours          *int                       `json:"print_hours"`
	PrintMinutes        *int                       `json:"print_minutes"`
	FansEnabled         *bool                      `json:"fans_enabled"`
	LightsEnabled       *bool                      `json:"lights_enabled"`
	LoggingEnabled      *bool                      `json:"logging_enabled"`
	HysteresisC         *float64                   `json:"hysteresis"`
	CooldownHours       *float64                   `json:"cooldown_hours"`
	CooldownTargetC     *float64                   `json:"cooldown_target_temp"`
	TempUnit            *string                    `json:"temp_unit"`
	RequireConfirmation *bool                      `json:"require_preheat_confirmation"`
	SkipPreheat         *bool                      `json:"skip_preheat"`
	ProbeNames          map[string]string          `json:"probe_names"`
	Presets             []Preset                   `json:"presets"`
	PrinterEnabled      *bool                      `json:"printer_enabled"`
	PrinterIP           *string                    `json:"printer_ip"`
	PrinterAccessCode   *string                    `json:"printer_access_code"`
	PrinterSerial       *string                    `json:"printer_serial"`
	AutoStartEnabled    *bool                      `json:"auto_start_enabled"`
	MaterialMappings    map[string]MaterialProfile `json:"material_mappings"`
	SlotOverrides       map[string]string          `json:"ams_slot_overrides"`
	ExternalSpool       *string                    `json:"external_spool_material"`
}

// Apply merges the patch into s field by field.
func (p SettingsPatch) Apply(s *Settings) {
	if p.TargetTempC != nil {
		s.TargetTempC = *p.TargetTempC
	}
	if p.PrintHours != nil {
		s.PrintHours = *p.PrintHours
	}
	if p.PrintMinutes != nil {
		s.PrintMinutes = *p.PrintMinutes
	}
	if p.FansEnabled != nil {
		s.FansEnabled = *p.FansEnabled
	}
	if p.LightsEnabled != nil {
		s.LightsEnabled = *p.LightsEnabled
	}
	if p.LoggingEnabled != nil {
		s.LoggingEnabled = *p.LoggingEnabled
	}
	if p.HysteresisC != nil {
		s.HysteresisC = *p.HysteresisC
	}
	if p.CooldownHours != nil {
		s.CooldownHours = *p.CooldownHours
	}
	if p.CooldownTargetC != nil {
		s.CooldownTargetC = *p.CooldownTargetC
	}
	if p.TempUnit != nil {
		s.TempUnit = *p.TempUnit
	}
	if p.RequireConfirmation != nil {
		s.RequireConfirmation = *p.RequireConfirmation
	}
	if p.SkipPreheat != nil {
		s.SkipPreheat = *p.SkipPreheat
	}
	if p.ProbeNames != nil {
		s.ProbeNames = p.ProbeNames
	}
	if p.Presets != nil {
		s.Presets = p.Presets
	}
	if p.PrinterEnabled != nil {
		s.PrinterEnabled = *p.PrinterEnabled
	}
	if p.PrinterIP != nil {
		s.PrinterIP = *p.PrinterIP
	}
	if p.PrinterAccessCode != nil {
		s.PrinterAccessCode = *p.PrinterAccessCode
	}
	if p.PrinterSerial != nil {
		s.PrinterSerial = *p.PrinterSerial
	}
	if p.AutoStartEnabled != nil {
		s.AutoStartEnabled = *p.AutoStartEnabled
	}
	if p.MaterialMappings != nil {
		s.MaterialMappings = p.MaterialMappings
	}
	if p.SlotOverrides != nil {
		s.SlotOverrides = p.SlotOverrides
	}
	if p.ExternalSpool != nil {
		s.ExternalSpool = *p.ExternalSpool
	}
}
