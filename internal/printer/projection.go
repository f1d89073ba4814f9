// Package printer integrates the Bambu Lab printer: the MQTT report feed, a
// sticky projection of the printer's last known state, filament material
// resolution, and the reconciler that auto-starts and auto-stops the chamber
// around print jobs.
package printer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"chamberctl/internal/models"
)

// Printer phases derived from gcode_state.
const (
	PhasePrinting = "printing"
	PhasePaused   = "paused"
	PhaseFinished = "finish"
	PhaseFailed   = "failed"
	PhaseIdle     = "idle"
)

// Sentinel tray indices: 254 means the external spool, 255 means no tray.
const (
	trayExternal = 254
	trayNone     = 255
)

// Projection accumulates printer report messages into a sticky state: a
// report that omits a field leaves the previous value in place. The printer
// only sends deltas after the initial pushall, so forgetting would blank
// most fields on every message.
type Projection struct {
	mu sync.Mutex
	st models.PrinterStatus
}

func NewProjection() *Projection {
	return &Projection{st: models.PrinterStatus{Phase: PhaseIdle, TrayNow: -1, TrayTarget: -1}}
}

// Status returns a copy of the current projection.
func (p *Projection) Status() models.PrinterStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// SetConnected records transport-level connectivity.
func (p *Projection) SetConnected(up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Connected = up
}

// SetMaterial stores the resolved filament material. Resolution lives in the
// reconciler because it needs settings; the sticky value lives here with the
// rest of the printer state.
func (p *Projection) SetMaterial(material string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Material = material
}

// report mirrors the subset of the Bambu report payload the controller
// cares about. Pointer fields distinguish "absent" from zero values.
type report struct {
	Print *printReport `json:"print"`
}

type printReport struct {
	GcodeState    *string     `json:"gcode_state"`
	GcodeFile     *string     `json:"gcode_file"`
	SubtaskName   *string     `json:"subtask_name"`
	Percent       *int        `json:"mc_percent"`
	RemainingMin  *int        `json:"mc_remaining_time"`
	NozzleTemper  *float64    `json:"nozzle_temper"`
	BedTemper     *float64    `json:"bed_temper"`
	ChamberTemper *float64    `json:"chamber_temper"`
	AMS           *amsReport  `json:"ams"`
	VirtualTray   *trayReport `json:"vt_tray"`
}

type amsReport struct {
	Units   []amsUnit `json:"ams"`
	TrayNow *string   `json:"tray_now"`
	TrayTar *string   `json:"tray_tar"`
}

type amsUnit struct {
	Trays []trayReport `json:"tray"`
}

type trayReport struct {
	ID       *string `json:"id"`
	TrayType *string `json:"tray_type"`
}

// ApplyReport merges one raw report message into the projection and returns
// the updated state. The second result is false when the payload carried
// nothing of interest.
func (p *Projection) ApplyReport(payload []byte) (models.PrinterStatus, bool) {
	var r report
	if err := json.Unmarshal(payload, &r); err != nil || r.Print == nil {
		return p.Status(), false
	}
	pr := r.Print

	p.mu.Lock()
	defer p.mu.Unlock()

	if pr.GcodeState != nil {
		p.st.Phase = phaseFromGcodeState(*pr.GcodeState)
	}
	if pr.SubtaskName != nil && *pr.SubtaskName != "" {
		p.st.File = *pr.SubtaskName
	} else if pr.GcodeFile != nil && *pr.GcodeFile != "" {
		p.st.File = *pr.GcodeFile
	}
	if pr.Percent != nil {
		p.st.Progress = *pr.Percent
	}
	if pr.RemainingMin != nil {
		p.st.RemainingSec = *pr.RemainingMin * 60
	}
	if pr.NozzleTemper != nil {
		p.st.NozzleTempC = *pr.NozzleTemper
	}
	if pr.BedTemper != nil {
		p.st.BedTempC = *pr.BedTemper
	}
	if pr.ChamberTemper != nil {
		p.st.ChamberTempC = *pr.ChamberTemper
	}
	if pr.AMS != nil {
		p.applyAMS(pr.AMS)
	}
	if pr.VirtualTray != nil && pr.VirtualTray.TrayType != nil {
		p.st.ExternalSpool = *pr.VirtualTray.TrayType
	}
	return p.st, true
}

func (p *Projection) applyAMS(a *amsReport) {
	for u, unit := range a.Units {
		for t, tray := range unit.Trays {
			slot := u*4 + t
			if tray.ID != nil {
				if id, err := strconv.Atoi(*tray.ID); err == nil {
					slot = u*4 + id
				}
			}
			if slot < 0 || slot >= len(p.st.AMSSlots) {
				continue
			}
			if tray.TrayType != nil {
				p.st.AMSSlots[slot] = *tray.TrayType
			}
		}
	}
	if a.TrayNow != nil {
		if n, err := strconv.Atoi(*a.TrayNow); err == nil {
			p.st.TrayNow = n
		}
	}
	if a.TrayTar != nil {
		if n, err := strconv.Atoi(*a.TrayTar); err == nil {
			p.st.TrayTarget = n
		}
	}
}

func phaseFromGcodeState(state string) string {
	switch strings.ToUpper(state) {
	case "RUNNING", "PREPARE", "SLICING":
		return PhasePrinting
	case "PAUSE":
		return PhasePaused
	case "FINISH":
		return PhaseFinished
	case "FAILED":
		return PhaseFailed
	default:
		return PhaseIdle
	}
}

// activeTray returns the slot index currently feeding filament, preferring
// the target slot during a filament change.
func activeTray(st models.PrinterStatus) int {
	if st.TrayTarget >= 0 && st.TrayTarget != trayNone {
		return st.TrayTarget
	}
	return st.TrayNow
}

// String implements a compact debug rendering used in log lines.
func describe(st models.PrinterStatus) string {
	return fmt.Sprintf("phase=%s file=%q material=%q progress=%d%%", st.Phase, st.File, st.Material, st.Progress)
}
