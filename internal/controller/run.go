package controller

import (
	"context"
	"fmt"
	"time"

	"chamberctl/internal/models"
	"chamberctl/internal/regulator"
)

// Run drives the controller until the context is cancelled. It alternates
// between an idle wait and a full heat/cooldown cycle.
func (c *Controller) Run(ctx context.Context) {
	c.recoverSnapshot(ctx)
	c.reconcileHardware()

	for {
		if !c.waitForStart(ctx) {
			c.shutdownActuators()
			return
		}
		c.runCycle(ctx)
		if ctx.Err() != nil {
			c.shutdownActuators()
			return
		}
	}
}

// recoverSnapshot checks for a session interrupted by a crash or power loss
// and, when it is still worth resuming, parks it for the operator to decide.
func (c *Controller) recoverSnapshot(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := c.sessions.Load(loadCtx)
	if err != nil {
		c.log.Errorw("session snapshot load failed", "error", err)
		return
	}
	if snap == nil {
		return
	}
	if !snap.ValidForResume(c.now()) {
		c.log.Infow("discarding stale session snapshot",
			"phase", snap.Phase, "saved_at", snap.SavedAt)
		if err := c.sessions.Delete(loadCtx); err != nil {
			c.log.Errorw("stale snapshot delete failed", "error", err)
		}
		return
	}

	c.mu.Lock()
	c.pendingResume = snap
	c.mu.Unlock()
	c.log.Infow("interrupted session found, awaiting resume decision",
		"phase", snap.Phase, "saved_at", snap.SavedAt)
}

// reconcileHardware reads what the relays were left at and then forces every
// actuator into a known state. A crashed process may have left the heater on.
func (c *Controller) reconcileHardware() {
	if levels, err := c.actuators.Levels(); err != nil {
		c.log.Errorw("actuator read-back failed", "error", err)
	} else if levels.Heater || levels.Fans {
		c.log.Infow("relays left on from previous run, clearing",
			"heater", levels.Heater, "fans", levels.Fans)
	}

	c.mu.Lock()
	lights := c.lightsOn
	c.mu.Unlock()

	if err := c.actuators.SetHeater(false); err != nil {
		c.log.Errorw("startup heater off failed", "error", err)
	}
	if err := c.actuators.SetFans(false); err != nil {
		c.log.Errorw("startup fans off failed", "error", err)
	}
	if err := c.actuators.SetBuzzer(false); err != nil {
		c.log.Errorw("startup buzzer off failed", "error", err)
	}
	if err := c.actuators.SetLights(lights); err != nil {
		c.log.Errorw("startup lights failed", "error", err)
	}
}

// ResumeSession restores the parked snapshot and re-enters the interrupted
// phase. The print clock is rebuilt so that elapsed time at save carries
// over and downtime is not billed against the print.
func (c *Controller) ResumeSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.pendingResume
	if snap == nil {
		return ErrNoPendingResume
	}
	if c.phase.Active() {
		return ErrAlreadyRunning
	}
	now := c.now()
	if !snap.ValidForResume(now) {
		c.pendingResume = nil
		return fmt.Errorf("interrupted session expired while waiting")
	}

	c.pendingResume = nil
	c.durationSec = snap.DurationSec
	c.adjustSec = snap.AdjustmentSec
	c.sessionFans = snap.FansEnabled
	c.loggingOn = snap.LoggingOn
	c.heaterManual = snap.HeaterManual
	c.fansManual = snap.FansManual
	c.pausedSec = snap.PausedSec
	c.isPaused = snap.IsPaused
	if c.isPaused {
		c.pausedAt = now
	}
	c.stopRequested = false
	c.toCooldown = false
	c.awaitingConfirm = false
	c.confirmed = true
	c.autoStarted = false

	if snap.Phase == models.PhaseCooling {
		c.phase = models.PhaseCooling
		c.cooldownStarted = snap.StartedAt
		c.cooldownFromC = snap.TargetTempC
		c.cooldownToC = c.settings.CooldownTargetC
		c.cooldownTotal = time.Duration(snap.DurationSec) * time.Second
		c.targetTempC = snap.TargetTempC
	} else {
		c.phase = models.PhaseHeating
		c.targetTempC = snap.TargetTempC
		// Shift the start backwards so elapsed-at-save is preserved and the
		// outage itself costs no print time.
		c.startedAt = now.Add(-snap.ElapsedAtSave() - time.Duration(snap.PausedSec)*time.Second)
	}
	c.resumeGo = true

	c.logEvent(models.EventResume, "session resumed after restart",
		map[string]any{"phase": string(snap.Phase), "saved_at": snap.SavedAt})
	return nil
}

// AbortResume discards the parked snapshot.
func (c *Controller) AbortResume() error {
	c.mu.Lock()
	if c.pendingResume == nil {
		c.mu.Unlock()
		return ErrNoPendingResume
	}
	c.pendingResume = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.sessions.Delete(ctx)
}

// waitForStart is the idle loop: keep temperatures fresh and the status
// feed alive until a session begins.
func (c *Controller) waitForStart(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		c.readSensors()
		c.Status()

		c.mu.Lock()
		active := c.phase.Active()
		c.mu.Unlock()
		if active {
			return true
		}
		if !sleepCtx(ctx, c.idleTick) {
			return false
		}
	}
}

func (c *Controller) runCycle(ctx context.Context) {
	defer c.endCycle()

	c.mu.Lock()
	resumed := c.resumeGo
	c.resumeGo = false
	phase := c.phase
	startedAt := c.startedAt
	loggingOn := c.loggingOn
	c.mu.Unlock()

	if !resumed {
		c.history.Reset()
	}
	if loggingOn {
		if err := c.tempLog.OpenSession(startedAt); err != nil {
			c.log.Errorw("session log open failed", "error", err)
		}
	}

	if phase != models.PhaseCooling {
		if !c.heatLoop(ctx) {
			return
		}
		c.enterCooldown()
	}
	c.cooldownLoop(ctx)
}

// heatLoop runs warming_up through maintaining until the print time is used
// up or a cooldown is requested. Returns false when the session should end
// without a cooldown.
func (c *Controller) heatLoop(ctx context.Context) bool {
	c.mu.Lock()
	pid := regulator.NewPID(c.targetTempC)
	c.mu.Unlock()

	ticks := 0
	for {
		if ctx.Err() != nil {
			return false
		}

		temp, ok := c.readSensors()

		c.mu.Lock()
		now := c.now()
		if c.stopRequested {
			c.mu.Unlock()
			return false
		}
		if c.toCooldown {
			c.mu.Unlock()
			return true
		}

		target := c.targetTempC
		hyst := c.settings.Hysteresis()
		manualHeater := c.heaterManual
		manualFans := c.fansManual
		blocked := c.fireAlarm || c.emergencyStop

		var wantHeater, wantFans bool
		switch {
		case blocked:
			wantHeater = false
			wantFans = c.fansOn
		case !ok:
			// Every probe failed: hold the last commanded state rather
			// than chilling the chamber over a transient read glitch.
			wantHeater = c.heaterOn
			wantFans = c.fansOn
		default:
			// Pausing freezes the print clock only; the chamber keeps
			// regulating so the part stays at temperature.
			pid.SetSetpoint(target)
			signal := pid.Update(temp, now)
			wantHeater = regulator.NextHeaterState(c.heaterOn, temp, target, hyst)
			wantFans = c.sessionFans
			c.log.Debugw("control tick",
				"temp", temp, "target", target, "heater", wantHeater, "signal", signal)

			if c.phase == models.PhaseWarmingUp && (regulator.WithinBand(temp, target) || c.awaitingConfirm) {
				switch {
				case !c.confirmed && !c.awaitingConfirm:
					// Hold at temperature until the operator loads the
					// chamber and confirms.
					c.awaitingConfirm = true
					c.logEvent(models.EventPhaseChange, "preheat complete, awaiting confirmation", nil)
				case c.confirmed:
					c.awaitingConfirm = false
					c.phase = models.PhaseHeating
					// The print clock starts now; warm-up was free.
					c.startedAt = now
					c.pausedSec = 0
					if c.isPaused {
						c.pausedAt = now
					}
					c.logEvent(models.EventPhaseChange, "target temperature reached", nil)
				}
			}
			if c.phase != models.PhaseWarmingUp {
				if regulator.WithinBand(temp, target) {
					c.phase = models.PhaseMaintaining
				} else {
					c.phase = models.PhaseHeating
				}
			}
		}

		if !manualHeater {
			c.heaterOn = wantHeater
		}
		if !manualFans {
			c.fansOn = wantFans
		}
		applyHeater := c.heaterOn && !blocked
		applyFans := c.fansOn
		loggingOn := c.loggingOn
		remaining := c.remainingSecLocked(now)
		done := c.phase != models.PhaseWarmingUp && remaining <= 0
		c.mu.Unlock()

		c.applyActuators(applyHeater, applyFans)

		if ok {
			sample := models.TemperatureSample{Time: now, TempC: temp, Setpoint: target}
			c.history.Append(sample)
			if loggingOn {
				if err := c.tempLog.Append(sample, applyHeater); err != nil {
					c.log.Errorw("session log write failed", "error", err)
				}
			}
		}

		c.Status()

		ticks++
		if ticks%saveEveryTicks == 0 {
			c.persistSnapshot()
		}
		if done {
			return true
		}
		if !sleepCtx(ctx, c.controlTick) {
			return false
		}
	}
}

// enterCooldown switches the session into the cooling ramp. A zero cooldown
// configuration skips straight to idle.
func (c *Controller) enterCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toCooldown = false
	if c.settings.CooldownHours <= 0 {
		c.stopRequested = true
		return
	}
	c.phase = models.PhaseCooling
	c.cooldownStarted = c.now()
	c.cooldownFromC = c.targetTempC
	c.cooldownToC = c.settings.CooldownTargetC
	c.cooldownTotal = time.Duration(c.settings.CooldownHours * float64(time.Hour))
	c.isPaused = false
	c.logEvent(models.EventPhaseChange, "cooldown started",
		map[string]any{"from": c.cooldownFromC, "to": c.cooldownToC, "hours": c.settings.CooldownHours})
}

// cooldownLoop steps the setpoint down until the ramp completes.
func (c *Controller) cooldownLoop(ctx context.Context) {
	c.mu.Lock()
	cooling := c.phase == models.PhaseCooling
	c.mu.Unlock()
	if !cooling {
		return
	}
	c.persistSnapshot()

	ticks := 0
	for {
		if ctx.Err() != nil {
			return
		}

		temp, ok := c.readSensors()

		c.mu.Lock()
		now := c.now()
		if c.stopRequested {
			c.mu.Unlock()
			return
		}
		setpoint := c.cooldownSetpointLocked(now)
		hyst := c.settings.Hysteresis()
		manualHeater := c.heaterManual
		manualFans := c.fansManual
		blocked := c.fireAlarm || c.emergencyStop

		// On a total sensor failure the last commanded state is held, same
		// as in the heat loop.
		wantHeater := c.heaterOn
		if blocked {
			wantHeater = false
		} else if ok {
			wantHeater = regulator.NextHeaterState(c.heaterOn, temp, setpoint, hyst)
		}
		if !manualHeater {
			c.heaterOn = wantHeater
		}
		if !manualFans {
			c.fansOn = c.sessionFans
		}
		applyHeater := c.heaterOn && !blocked
		applyFans := c.fansOn
		loggingOn := c.loggingOn
		finished := now.Sub(c.cooldownStarted) >= c.cooldownTotal
		c.mu.Unlock()

		c.applyActuators(applyHeater, applyFans)

		if ok {
			sample := models.TemperatureSample{Time: now, TempC: temp, Setpoint: setpoint}
			c.history.Append(sample)
			if loggingOn {
				if err := c.tempLog.Append(sample, applyHeater); err != nil {
					c.log.Errorw("session log write failed", "error", err)
				}
			}
		}

		c.Status()

		if finished {
			return
		}
		ticks++
		if ticks%saveEveryTicks == 0 {
			c.persistSnapshot()
		}
		if !sleepCtx(ctx, c.controlTick) {
			return
		}
	}
}

// endCycle returns the chamber to idle: actuators off, snapshot deleted,
// state reset.
func (c *Controller) endCycle() {
	if err := c.actuators.SetHeater(false); err != nil {
		c.log.Errorw("heater off failed", "error", err)
	}
	if err := c.actuators.SetFans(false); err != nil {
		c.log.Errorw("fans off failed", "error", err)
	}
	c.tempLog.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.Delete(ctx); err != nil {
		c.log.Errorw("snapshot delete failed", "error", err)
	}

	c.mu.Lock()
	wasEmergency := c.emergencyStop || c.fireAlarm
	c.phase = models.PhaseIdle
	c.isPaused = false
	c.pausedSec = 0
	c.adjustSec = 0
	c.heaterOn = false
	c.fansOn = false
	c.heaterManual = false
	c.fansManual = false
	c.stopRequested = false
	c.toCooldown = false
	c.awaitingConfirm = false
	c.confirmed = false
	c.autoStarted = false
	if !wasEmergency {
		c.logEvent(models.EventStop, "session ended", nil)
	}
	c.mu.Unlock()

	c.Status()
}

// shutdownActuators is the process-exit path: everything off, lights
// included.
func (c *Controller) shutdownActuators() {
	for _, f := range []func(bool) error{
		c.actuators.SetHeater, c.actuators.SetFans, c.actuators.SetLights, c.actuators.SetBuzzer,
	} {
		if err := f(false); err != nil {
			c.log.Errorw("shutdown actuator off failed", "error", err)
		}
	}
}

// readSensors refreshes the cached temperature. The bool result is false
// when every probe failed.
func (c *Controller) readSensors() (float64, bool) {
	avg, probes, err := c.sensors.Read()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.probeTemps = probes
	if err != nil {
		c.allSensorsFailed = true
		return c.currentTempC, false
	}
	c.allSensorsFailed = false
	c.currentTempC = avg
	return avg, true
}

func (c *Controller) applyActuators(heater, fans bool) {
	if err := c.actuators.SetHeater(heater); err != nil {
		c.log.Errorw("set heater failed", "error", err)
	}
	if err := c.actuators.SetFans(fans); err != nil {
		c.log.Errorw("set fans failed", "error", err)
	}
}

// persistSnapshot writes the crash-recovery record.
func (c *Controller) persistSnapshot() {
	c.mu.Lock()
	now := c.now()
	snap := models.SessionSnapshot{
		Phase:         c.phase,
		StartedAt:     c.startedAt,
		DurationSec:   c.durationSec,
		PausedSec:     c.pausedSec,
		IsPaused:      c.isPaused,
		TargetTempC:   c.targetTempC,
		FansEnabled:   c.sessionFans,
		LoggingOn:     c.loggingOn,
		AdjustmentSec: c.adjustSec,
		HeaterManual:  c.heaterManual,
		FansManual:    c.fansManual,
		HeaterOn:      c.heaterOn,
		FansOn:        c.fansOn,
		SavedAt:       now,
	}
	if c.isPaused {
		// Fold the live pause interval in so the restored clock is right
		// even though pausedAt itself is not persisted.
		snap.PausedSec += int(now.Sub(c.pausedAt).Seconds())
	}
	if c.phase == models.PhaseCooling {
		snap.StartedAt = c.cooldownStarted
		snap.DurationSec = int(c.cooldownTotal.Seconds())
		snap.TargetTempC = c.cooldownFromC
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.Save(ctx, snap); err != nil {
		c.log.Errorw("snapshot save failed", "error", err)
	}
}

func (c *Controller) cooldownSetpointLocked(now time.Time) float64 {
	if c.cooldownTotal <= 0 {
		return c.cooldownToC
	}
	steps := int(c.cooldownTotal / cooldownStepPeriod)
	if steps <= 0 {
		return c.cooldownToC
	}
	done := int(now.Sub(c.cooldownStarted) / cooldownStepPeriod)
	if done < 0 {
		done = 0
	}
	if done > steps {
		done = steps
	}
	delta := (c.cooldownFromC - c.cooldownToC) / float64(steps)
	return c.cooldownFromC - delta*float64(done)
}

func (c *Controller) cooldownRemainingLocked(now time.Time) int {
	remaining := c.cooldownTotal - now.Sub(c.cooldownStarted)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
