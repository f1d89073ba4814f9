// Package controller implements the chamber lifecycle: the control state
// machine, the fire-safety interlock, crash-recoverable session persistence
// and the sequenced status feed.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chamberctl/internal/hardware"
	"chamberctl/internal/logger"
	"chamberctl/internal/models"
	"chamberctl/internal/regulator"
	"chamberctl/internal/repository"
)

// Command errors surfaced to the API layer.
var (
	ErrAlreadyRunning  = errors.New("a session is already running")
	ErrNotRunning      = errors.New("no session is running")
	ErrEmergencyActive = errors.New("emergency stop is active, reset the alarm first")
	ErrFireActive      = errors.New("fire alarm is active")
	ErrNotPausable     = errors.New("session cannot be paused in this phase")
	ErrNotAwaiting     = errors.New("no preheat confirmation pending")
	ErrNoPendingResume = errors.New("no interrupted session to resume")
	ErrSensorStillHot  = errors.New("fire sensor still reports a fire")
)

// Loop timing. Fields on the struct so tests can shrink them.
const (
	defaultControlTick = 5 * time.Second
	defaultIdleTick    = time.Second
	defaultSafetyTick  = time.Second

	// Snapshot every N control ticks.
	saveEveryTicks = 2

	// Cooldown ramps in fixed five-minute steps.
	cooldownStepPeriod = 5 * time.Minute
)

// Controller drives the chamber. All mutable state lives behind one mutex;
// the control loop, the safety monitor and the HTTP handlers all go through
// it. Long operations (sleeps, I/O) happen outside the lock.
type Controller struct {
	log       *logger.Logger
	sessions  repository.SessionRepo
	events    repository.EventRepo
	actuators hardware.ActuatorBus
	fire      hardware.FireSensor
	sensors   *hardware.Aggregator

	hub     *Hub
	history *regulator.History
	tempLog *TempLog

	controlTick time.Duration
	idleTick    time.Duration
	safetyTick  time.Duration

	now func() time.Time

	// printerState supplies the printer projection for status snapshots.
	printerState func() models.PrinterStatus
	// onManualStop tells the reconciler to drop its auto-start claim.
	onManualStop func()
	// onFireAlarm is fired once when the interlock latches.
	onFireAlarm func()

	mu sync.Mutex

	settings models.Settings

	phase       models.Phase
	startedAt   time.Time
	durationSec int
	adjustSec   int
	targetTempC float64
	sessionFans bool
	loggingOn   bool
	autoStarted bool

	isPaused  bool
	pausedAt  time.Time
	pausedSec int

	heaterOn     bool
	fansOn       bool
	lightsOn     bool
	heaterManual bool
	fansManual   bool

	currentTempC     float64
	probeTemps       []models.ProbeTemp
	allSensorsFailed bool

	emergencyStop bool
	fireAlarm     bool

	awaitingConfirm bool
	confirmed       bool
	stopRequested   bool
	toCooldown      bool

	cooldownStarted time.Time
	cooldownFromC   float64
	cooldownToC     float64
	cooldownTotal   time.Duration

	pendingResume *models.SessionSnapshot
	resumeGo      bool
}

func New(
	log *logger.Logger,
	repo *repository.Repository,
	actuators hardware.ActuatorBus,
	fire hardware.FireSensor,
	sensors *hardware.Aggregator,
	tempLog *TempLog,
	settings models.Settings,
) *Controller {
	c := &Controller{
		log:          log,
		sessions:     repo.Sessions,
		events:       repo.Events,
		actuators:    actuators,
		fire:         fire,
		sensors:      sensors,
		hub:          NewHub(),
		history:      regulator.NewHistory(),
		tempLog:      tempLog,
		controlTick:  defaultControlTick,
		idleTick:     defaultIdleTick,
		safetyTick:   defaultSafetyTick,
		now:          time.Now,
		printerState: func() models.PrinterStatus { return models.PrinterStatus{} },
		onManualStop: func() {},
		onFireAlarm:  func() {},
		settings:     settings,
		phase:        models.PhaseIdle,
	}
	sensors.SetProbeNames(settings.ProbeNames)
	c.lightsOn = settings.LightsEnabled
	return c
}

// Hub exposes the status feed for websocket wiring.
func (c *Controller) Hub() *Hub { return c.hub }

// History exposes the rolling temperature buffer for the chart endpoint.
func (c *Controller) History() *regulator.History { return c.history }

// TempLog exposes the CSV session logs.
func (c *Controller) TempLog() *TempLog { return c.tempLog }

// SetPrinterSource installs the printer projection used in status snapshots.
func (c *Controller) SetPrinterSource(fn func() models.PrinterStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		c.printerState = fn
	}
}

// SetManualStopHook installs the callback fired when the operator stops a
// session by hand.
func (c *Controller) SetManualStopHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		c.onManualStop = fn
	}
}

// SetFireAlarmHook installs the callback fired when the fire interlock
// latches, so the printer can be told to stop its print.
func (c *Controller) SetFireAlarmHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		c.onFireAlarm = fn
	}
}

// Settings returns the current settings copy.
func (c *Controller) Settings() models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// ApplySettings installs new settings and propagates the pieces live parts
// of the system read directly.
func (c *Controller) ApplySettings(s models.Settings) {
	c.sensors.SetProbeNames(s.ProbeNames)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
	if !c.phase.Active() {
		// Lights preference applies immediately outside a session.
		if c.lightsOn != s.LightsEnabled {
			c.lightsOn = s.LightsEnabled
			c.applyLightsLocked()
		}
	}
}

// SessionActive reports whether a heating or cooling cycle is running.
func (c *Controller) SessionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase.Active()
}

// Start begins a session with the configured target and duration.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(c.settings.TargetTempC, c.settings.FansEnabled, false)
}

// AutoStart begins a session on behalf of the printer reconciler, using the
// material profile instead of the configured target. Preheat confirmation is
// skipped: there is nobody at the UI to confirm.
func (c *Controller) AutoStart(material string, profile models.MaterialProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.startLocked(profile.TempC, profile.Fans, true); err != nil {
		return err
	}
	c.logEvent(models.EventAutoStart, fmt.Sprintf("auto-start for %s print", material),
		map[string]any{"material": material, "target": profile.TempC})
	return nil
}

func (c *Controller) startLocked(targetC float64, fans bool, auto bool) error {
	switch {
	case c.phase.Active():
		return ErrAlreadyRunning
	case c.fireAlarm:
		return ErrFireActive
	case c.emergencyStop:
		return ErrEmergencyActive
	}

	// Starting fresh abandons any resume offer.
	c.pendingResume = nil
	c.resumeGo = false

	c.confirmed = auto || c.settings.SkipPreheat || !c.settings.RequireConfirmation
	c.awaitingConfirm = false
	if c.settings.SkipPreheat || c.currentTempC >= targetC {
		// Nothing to warm up: the print clock starts right away and there
		// is no preheat to confirm.
		c.phase = models.PhaseHeating
		c.confirmed = true
	} else {
		c.phase = models.PhaseWarmingUp
	}
	c.startedAt = c.now()
	c.durationSec = c.settings.PrintDurationSec()
	c.adjustSec = 0
	c.targetTempC = targetC
	c.sessionFans = fans
	c.loggingOn = c.settings.LoggingEnabled
	c.autoStarted = auto
	c.isPaused = false
	c.pausedSec = 0
	c.heaterManual = false
	c.fansManual = false
	c.stopRequested = false
	c.toCooldown = false

	if !auto {
		c.logEvent(models.EventStart, "session started",
			map[string]any{"target": targetC, "duration_sec": c.durationSec})
	}
	return nil
}

// Stop ends the session immediately, skipping cooldown.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.phase.Active() && c.pendingResume == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.pendingResume = nil
	c.resumeGo = false
	wasActive := c.phase.Active()
	if wasActive {
		c.stopRequested = true
		c.toCooldown = false
	}
	hook := c.onManualStop
	c.mu.Unlock()

	if !wasActive {
		// Only a parked resume offer was stopped; its persisted snapshot
		// must go too or the next boot will offer it again.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.sessions.Delete(ctx)
	}
	hook()
	return nil
}

// AutoStopImmediate is Stop on behalf of the reconciler (failed print).
func (c *Controller) AutoStopImmediate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.phase.Active() {
		return ErrNotRunning
	}
	c.stopRequested = true
	c.toCooldown = false
	c.logEvent(models.EventAutoStop, "print failed, stopping chamber", nil)
	return nil
}

// AutoStopCooldown ends the heating phase early and moves to cooldown
// (finished print).
func (c *Controller) AutoStopCooldown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.phase.Active() {
		return ErrNotRunning
	}
	if c.phase == models.PhaseCooling {
		return nil
	}
	c.toCooldown = true
	c.logEvent(models.EventAutoStop, "print finished, starting cooldown", nil)
	return nil
}

// PauseToggle pauses or resumes the print timer. Only meaningful while the
// chamber is heating; pausing a cooldown makes no sense.
func (c *Controller) PauseToggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case models.PhaseWarmingUp, models.PhaseHeating, models.PhaseMaintaining:
	default:
		return false, ErrNotPausable
	}

	if c.isPaused {
		c.pausedSec += int(c.now().Sub(c.pausedAt).Seconds())
		c.isPaused = false
		c.pausedAt = time.Time{}
	} else {
		c.isPaused = true
		c.pausedAt = c.now()
	}
	return c.isPaused, nil
}

// ConfirmPreheat releases a session waiting for operator confirmation.
func (c *Controller) ConfirmPreheat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.awaitingConfirm {
		return ErrNotAwaiting
	}
	c.awaitingConfirm = false
	c.confirmed = true
	return nil
}

// AdjustTime adds (or removes) print time mid-session.
func (c *Controller) AdjustTime(deltaSec int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case models.PhaseWarmingUp, models.PhaseHeating, models.PhaseMaintaining:
	default:
		return 0, ErrNotRunning
	}
	c.adjustSec += deltaSec
	return c.remainingSecLocked(c.now()), nil
}

// EmergencyStop kills the heater and latches until ResetAlarm.
func (c *Controller) EmergencyStop() error {
	c.mu.Lock()
	c.emergencyStop = true
	c.stopRequested = true
	c.toCooldown = false
	c.heaterOn = false
	c.fansOn = false
	c.logEvent(models.EventEmergencyStop, "emergency stop pressed", nil)
	c.mu.Unlock()

	if err := c.actuators.SetHeater(false); err != nil {
		c.log.Errorw("emergency heater off failed", "error", err)
	}
	if err := c.actuators.SetFans(false); err != nil {
		c.log.Errorw("emergency fans off failed", "error", err)
	}
	return nil
}

// ResetAlarm clears the emergency latch and the fire alarm. The fire alarm
// only clears when the sensor no longer sees a fire; a reset request while
// smoke is still present is refused outright.
func (c *Controller) ResetAlarm() error {
	detected, err := c.fire.FireDetected()
	if err != nil {
		return fmt.Errorf("read fire sensor: %w", err)
	}
	if detected {
		return ErrSensorStillHot
	}

	c.mu.Lock()
	hadAlarm := c.fireAlarm || c.emergencyStop
	c.fireAlarm = false
	c.emergencyStop = false
	if hadAlarm {
		c.logEvent(models.EventAlarmReset, "alarm reset", nil)
	}
	c.mu.Unlock()

	if err := c.actuators.SetBuzzer(false); err != nil {
		c.log.Errorw("buzzer off failed", "error", err)
	}
	return nil
}

// ToggleHeater flips the heater by hand and detaches it from the regulator
// until the session ends.
func (c *Controller) ToggleHeater() (bool, error) {
	c.mu.Lock()
	if c.fireAlarm || c.emergencyStop {
		c.mu.Unlock()
		return false, ErrEmergencyActive
	}
	c.heaterManual = true
	c.heaterOn = !c.heaterOn
	on := c.heaterOn
	c.mu.Unlock()

	if err := c.actuators.SetHeater(on); err != nil {
		return on, fmt.Errorf("set heater: %w", err)
	}
	return on, nil
}

// ToggleFans flips the fans by hand and detaches them from the session
// profile until the session ends.
func (c *Controller) ToggleFans() (bool, error) {
	c.mu.Lock()
	c.fansManual = true
	c.fansOn = !c.fansOn
	on := c.fansOn
	c.mu.Unlock()

	if err := c.actuators.SetFans(on); err != nil {
		return on, fmt.Errorf("set fans: %w", err)
	}
	return on, nil
}

// ToggleLights flips the chamber lights.
func (c *Controller) ToggleLights() (bool, error) {
	c.mu.Lock()
	c.lightsOn = !c.lightsOn
	on := c.lightsOn
	c.mu.Unlock()

	if err := c.actuators.SetLights(on); err != nil {
		return on, fmt.Errorf("set lights: %w", err)
	}
	return on, nil
}

func (c *Controller) applyLightsLocked() {
	on := c.lightsOn
	go func() {
		if err := c.actuators.SetLights(on); err != nil {
			c.log.Errorw("set lights failed", "error", err)
		}
	}()
}

// remainingSecLocked computes print time left, excluding paused intervals.
// Warm-up is free: the clock only starts counting once the chamber reaches
// temperature, so the full duration is reported until then.
func (c *Controller) remainingSecLocked(now time.Time) int {
	if c.phase == models.PhaseWarmingUp {
		remaining := c.durationSec + c.adjustSec
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	elapsed := int(now.Sub(c.startedAt).Seconds()) - c.pausedSec
	if c.isPaused {
		elapsed -= int(now.Sub(c.pausedAt).Seconds())
	}
	remaining := c.durationSec + c.adjustSec - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status builds and publishes a fresh snapshot. Handlers call this for the
// REST status endpoint; the loops call it every tick.
func (c *Controller) Status() models.StatusSnapshot {
	printer := c.currentPrinterState()

	c.mu.Lock()
	now := c.now()
	s := models.StatusSnapshot{
		Phase:                c.phase,
		CurrentTempC:         c.currentTempC,
		SensorTemps:          append([]models.ProbeTemp(nil), c.probeTemps...),
		Setpoint:             c.setpointLocked(now),
		HeaterOn:             c.heaterOn,
		HeaterManual:         c.heaterManual,
		FansOn:               c.fansOn,
		FansManual:           c.fansManual,
		LightsOn:             c.lightsOn,
		EmergencyStop:        c.emergencyStop,
		PrintActive:          c.phase.Active(),
		PrintPaused:          c.isPaused,
		AwaitingConfirmation: c.awaitingConfirm,
		PendingResume:        c.pendingResume != nil,
		AllSensorsFailed:     c.allSensorsFailed,
		PrinterStatus:        printer,
	}
	if c.fireAlarm {
		s.EmergencyStop = true
	}
	switch c.phase {
	case models.PhaseWarmingUp, models.PhaseHeating, models.PhaseMaintaining:
		s.PrintRemainingSec = c.remainingSecLocked(now)
		s.ETAToTargetSec = int(c.history.ETASeconds(c.currentTempC, c.targetTempC))
	case models.PhaseCooling:
		s.CooldownRemainingSec = c.cooldownRemainingLocked(now)
	}
	c.mu.Unlock()

	return c.hub.Publish(s)
}

func (c *Controller) currentPrinterState() models.PrinterStatus {
	c.mu.Lock()
	fn := c.printerState
	c.mu.Unlock()
	return fn()
}

// setpointLocked is the temperature the regulator is currently holding.
func (c *Controller) setpointLocked(now time.Time) float64 {
	switch c.phase {
	case models.PhaseCooling:
		return c.cooldownSetpointLocked(now)
	case models.PhaseIdle:
		return 0
	default:
		return c.targetTempC
	}
}

func (c *Controller) logEvent(typ, description string, meta any) {
	e := models.ControllerEvent{Type: typ, Description: description, Metadata: meta}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.events.Append(ctx, e); err != nil {
			c.log.Errorw("event append failed", "type", typ, "error", err)
		}
	}()
}
