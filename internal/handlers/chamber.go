package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chamberctl/internal/controller"
)

// Response status constants to avoid magic strings and typos.
// Chart payload cap when the client does not ask for a specific window.
const defaultHistorySamples = 100

const (
	statusOK        = "ok"
	statusStarted   = "started"
	statusStopped   = "stopped"
	statusConfirmed = "confirmed"
	statusResumed   = "resumed"
	statusAborted   = "aborted"
	statusReset     = "reset"
)

// Centralized error logging and response. State-machine refusals are client
// errors; everything else is internal.
func (h *Handler) commandError(c *gin.Context, logKey string, err error) {
	if h.log != nil {
		h.log.Errorw(logKey, "err", err)
	}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, controller.ErrAlreadyRunning),
		errors.Is(err, controller.ErrNotRunning),
		errors.Is(err, controller.ErrNotPausable),
		errors.Is(err, controller.ErrNotAwaiting),
		errors.Is(err, controller.ErrNoPendingResume):
		code = http.StatusConflict
	case errors.Is(err, controller.ErrEmergencyActive),
		errors.Is(err, controller.ErrFireActive),
		errors.Is(err, controller.ErrSensorStillHot):
		code = http.StatusLocked
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// proxyPrinter mirrors a chamber command to the printer, best effort. A
// publish failure is logged and never escalated to the client.
func (h *Handler) proxyPrinter(command string) {
	if !h.services.Printer.Status().Connected {
		return
	}
	if err := h.services.Printer.SendCommand(command); err != nil && h.log != nil {
		h.log.Infow("printer_proxy_failed", "command", command, "err", err)
	}
}

// Respond with a status word plus a fresh state snapshot.
func (h *Handler) respondWithState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status, "state": h.services.Chamber.Status()}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start a heating session
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/start [post]
// @Security     BearerAuth
func (h *Handler) startChamber(c *gin.Context) {
	if err := h.services.Chamber.Start(); err != nil {
		h.commandError(c, "chamber_start_failed", err)
		return
	}
	h.respondWithState(c, statusStarted, gin.H{})
}

// @Summary      Stop the session immediately
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/stop [post]
// @Security     BearerAuth
func (h *Handler) stopChamber(c *gin.Context) {
	if err := h.services.Chamber.Stop(); err != nil {
		h.commandError(c, "chamber_stop_failed", err)
		return
	}
	h.proxyPrinter("stop")
	h.respondWithState(c, statusStopped, gin.H{})
}

// @Summary      Pause or resume the print timer
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, paused, state"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/pause [post]
// @Security     BearerAuth
func (h *Handler) pauseChamber(c *gin.Context) {
	paused, err := h.services.Chamber.PauseToggle()
	if err != nil {
		h.commandError(c, "chamber_pause_failed", err)
		return
	}
	status := "resumed"
	command := "resume"
	if paused {
		status = "paused"
		command = "pause"
	}
	h.proxyPrinter(command)
	h.respondWithState(c, status, gin.H{"paused": paused})
}

// @Summary      Emergency stop
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/chamber/emergency-stop [post]
// @Security     BearerAuth
func (h *Handler) emergencyStop(c *gin.Context) {
	if err := h.services.Chamber.EmergencyStop(); err != nil {
		h.commandError(c, "chamber_emergency_stop_failed", err)
		return
	}
	h.respondWithState(c, statusStopped, gin.H{})
}

// @Summary      Reset fire/emergency alarm
// @Description  Refused while the fire sensor still reports a fire.
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      423  {object}  map[string]string
// @Router       /api/v1/chamber/reset-alarm [post]
// @Security     BearerAuth
func (h *Handler) resetAlarm(c *gin.Context) {
	if err := h.services.Chamber.ResetAlarm(); err != nil {
		h.commandError(c, "chamber_reset_alarm_failed", err)
		return
	}
	h.respondWithState(c, statusReset, gin.H{})
}

// @Summary      Confirm a pending preheat
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/confirm-preheat [post]
// @Security     BearerAuth
func (h *Handler) confirmPreheat(c *gin.Context) {
	if err := h.services.Chamber.ConfirmPreheat(); err != nil {
		h.commandError(c, "chamber_confirm_failed", err)
		return
	}
	h.respondWithState(c, statusConfirmed, gin.H{})
}

// @Summary      Resume an interrupted session
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/resume [post]
// @Security     BearerAuth
func (h *Handler) resumeSession(c *gin.Context) {
	if err := h.services.Chamber.ResumeSession(); err != nil {
		h.commandError(c, "chamber_resume_failed", err)
		return
	}
	h.respondWithState(c, statusResumed, gin.H{})
}

// @Summary      Discard an interrupted session
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/chamber/abort-resume [post]
// @Security     BearerAuth
func (h *Handler) abortResume(c *gin.Context) {
	if err := h.services.Chamber.AbortResume(); err != nil {
		h.commandError(c, "chamber_abort_resume_failed", err)
		return
	}
	h.respondWithState(c, statusAborted, gin.H{})
}

type adjustTimeRequest struct {
	DeltaSec int `json:"delta_sec" binding:"required"`
}

// @Summary      Add or remove print time
// @Tags         chamber
// @Accept       json
// @Produce      json
// @Param        body  body  adjustTimeRequest  true  "Adjustment payload"
// @Success      200   {object}  map[string]interface{}  "status, remaining_sec, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/chamber/adjust-time [post]
// @Security     BearerAuth
func (h *Handler) adjustTime(c *gin.Context) {
	var req adjustTimeRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	remaining, err := h.services.Chamber.AdjustTime(req.DeltaSec)
	if err != nil {
		h.commandError(c, "chamber_adjust_time_failed", err)
		return
	}
	h.respondWithState(c, statusOK, gin.H{"remaining_sec": remaining})
}

// @Summary      Toggle the heater manually
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, on, state"
// @Failure      401  {object}  map[string]string
// @Failure      423  {object}  map[string]string
// @Router       /api/v1/chamber/heater [post]
// @Security     BearerAuth
func (h *Handler) toggleHeater(c *gin.Context) {
	on, err := h.services.Chamber.ToggleHeater()
	if err != nil {
		h.commandError(c, "chamber_toggle_heater_failed", err)
		return
	}
	h.respondWithState(c, statusOK, gin.H{"on": on})
}

// @Summary      Toggle the fans manually
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/chamber/fans [post]
// @Security     BearerAuth
func (h *Handler) toggleFans(c *gin.Context) {
	on, err := h.services.Chamber.ToggleFans()
	if err != nil {
		h.commandError(c, "chamber_toggle_fans_failed", err)
		return
	}
	h.respondWithState(c, statusOK, gin.H{"on": on})
}

// @Summary      Toggle the chamber lights
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/chamber/lights [post]
// @Security     BearerAuth
func (h *Handler) toggleLights(c *gin.Context) {
	on, err := h.services.Chamber.ToggleLights()
	if err != nil {
		h.commandError(c, "chamber_toggle_lights_failed", err)
		return
	}
	h.respondWithState(c, statusOK, gin.H{"on": on})
}

// @Summary      Current chamber status
// @Tags         chamber
// @Produce      json
// @Success      200  {object}  models.StatusSnapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Chamber.Status())
}

// @Summary      Recent temperature history
// @Tags         chamber
// @Produce      json
// @Param        samples  query  int  false  "Max samples to return (newest)"
// @Success      200  {object}  map[string]interface{}  "count, samples"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/history [get]
// @Security     BearerAuth
func (h *Handler) getHistory(c *gin.Context) {
	n := defaultHistorySamples
	if qs := c.Query("samples"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			n = v
		}
	}
	samples := h.services.Chamber.History().Recent(n)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}
