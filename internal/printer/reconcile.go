package printer

import (
	"sync"
	"time"

	"chamberctl/internal/logger"
	"chamberctl/internal/models"
)

// autoStartDebounce is the minimum spacing between auto-start triggers. A
// print that flaps between states right after one trigger does not start
// the chamber a second time.
const autoStartDebounce = 30 * time.Second

// Chamber is the subset of controller operations the reconciler drives.
type Chamber interface {
	SessionActive() bool
	AutoStart(material string, profile models.MaterialProfile) error
	AutoStopCooldown() error
	AutoStopImmediate() error
}

// Reconciler watches the printer projection and keeps the chamber session
// aligned with the print job: start heating shortly after a print begins,
// start cooldown when it finishes, stop outright when it fails. It only ever
// undoes what it started itself; manual sessions are left alone.
type Reconciler struct {
	log     *logger.Logger
	chamber Chamber
	proj    *Projection

	mu            sync.Mutex
	triggered     bool
	lastTriggerAt time.Time
	lastPhase     string
}

func NewReconciler(log *logger.Logger, chamber Chamber, proj *Projection) *Reconciler {
	return &Reconciler{log: log, chamber: chamber, proj: proj}
}

// Triggered reports whether the current session was started by the
// reconciler.
func (r *Reconciler) Triggered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.triggered
}

// ClearTrigger forgets auto-start ownership. Called when the operator stops
// the session manually so a later FINISH does not fire a second stop.
func (r *Reconciler) ClearTrigger() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered = false
}

// Observe is called with the current printer state and settings whenever a
// report arrives, plus periodically so state transitions are never missed
// when the printer goes quiet.
func (r *Reconciler) Observe(now time.Time, st models.PrinterStatus, cfg models.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	phaseChanged := st.Phase != r.lastPhase
	r.lastPhase = st.Phase

	if phaseChanged && st.Phase == PhaseIdle {
		// The job is gone; whatever filament it used says nothing about
		// the next one.
		r.proj.SetMaterial("")
		st.Material = ""
	}

	material := st.Material
	if st.Phase == PhasePrinting || st.Phase == PhasePaused {
		material = ResolveMaterial(st, cfg, st.Material)
		if material != st.Material {
			r.proj.SetMaterial(material)
			st.Material = material
		}
	}

	switch st.Phase {
	case PhasePrinting:
		if phaseChanged {
			r.observePrintStarted(now, st, cfg, material)
		}
	case PhaseFinished:
		if phaseChanged && r.triggered {
			r.triggered = false
			r.log.Infow("print finished, starting chamber cooldown", "file", st.File)
			if err := r.chamber.AutoStopCooldown(); err != nil {
				r.log.Errorw("auto-stop failed", "error", err)
			}
		}
	case PhaseFailed:
		if phaseChanged && r.triggered {
			r.triggered = false
			r.log.Warnw("print failed, stopping chamber", "file", st.File)
			if err := r.chamber.AutoStopImmediate(); err != nil {
				r.log.Errorw("auto-stop failed", "error", err)
			}
		}
	}
}

// observePrintStarted handles a transition into the printing phase. The
// chamber starts right away; the debounce only suppresses re-triggers close
// on the heels of a previous one.
func (r *Reconciler) observePrintStarted(now time.Time, st models.PrinterStatus, cfg models.Settings, material string) {
	if !cfg.AutoStartEnabled || r.chamber.SessionActive() {
		return
	}
	if !r.lastTriggerAt.IsZero() && now.Sub(r.lastTriggerAt) < autoStartDebounce {
		r.log.Debugw("auto-start suppressed, too soon after the last trigger",
			"file", st.File, "material", material)
		return
	}

	profile, ok := cfg.MaterialMappings[material]
	if !ok || profile.TempC <= 0 {
		// Unknown material or one that wants no heating (PLA).
		r.log.Debugw("no auto-start for material", "file", st.File, "material", material)
		return
	}

	r.triggered = true
	r.lastTriggerAt = now
	r.log.Infow("auto-starting chamber for print",
		"file", st.File, "material", material, "target", profile.TempC, "fans", profile.Fans)
	if err := r.chamber.AutoStart(material, profile); err != nil {
		r.triggered = false
		r.log.Errorw("auto-start failed", "error", err)
	}
}
