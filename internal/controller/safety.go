package controller

import (
	"context"

	"chamberctl/internal/models"
)

// RunSafetyMonitor polls the fire sensor independently of the control loop
// so a fire during idle is caught just as fast as one mid-session. The
// alarm is edge-triggered: it latches on detection and only ResetAlarm,
// with the sensor physically clear, releases it.
func (c *Controller) RunSafetyMonitor(ctx context.Context) {
	for {
		if !sleepCtx(ctx, c.safetyTick) {
			return
		}

		detected, err := c.fire.FireDetected()
		if err != nil {
			c.log.Debugw("fire sensor read failed", "error", err)
			continue
		}

		c.mu.Lock()
		newAlarm := detected && !c.fireAlarm
		if newAlarm {
			c.fireAlarm = true
			c.stopRequested = true
			c.toCooldown = false
			c.heaterOn = false
			c.heaterManual = false
			c.fansOn = false
			c.fansManual = false
			c.logEvent(models.EventFireAlarm, "fire detected, session aborted", nil)
		}
		alarmHeld := c.fireAlarm || c.emergencyStop
		hook := c.onFireAlarm
		c.mu.Unlock()

		if newAlarm {
			c.log.Errorw("FIRE DETECTED, shutting the heater down")
			if err := c.actuators.SetFans(false); err != nil {
				c.log.Errorw("safety fans off failed", "error", err)
			}
			if err := c.actuators.SetBuzzer(true); err != nil {
				c.log.Errorw("buzzer on failed", "error", err)
			}
			// Best effort: an attached printer should stop feeding filament
			// into a burning chamber.
			hook()
			c.Status()
		}
		if alarmHeld {
			// Enforced every poll in case anything raced the latch.
			if err := c.actuators.SetHeater(false); err != nil {
				c.log.Errorw("safety heater off failed", "error", err)
			}
		}
	}
}

// FireAlarmActive reports whether the alarm latch is held.
func (c *Controller) FireAlarmActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fireAlarm
}
