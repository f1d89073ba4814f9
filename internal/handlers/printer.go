package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chamberctl/internal/service"
)

// @Summary      Printer status
// @Tags         printer
// @Produce      json
// @Success      200  {object}  models.PrinterStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/printer/status [get]
// @Security     BearerAuth
func (h *Handler) printerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Printer.Status())
}

type printerCommandRequest struct {
	Command string `json:"command" binding:"required"` // pause | resume | stop
}

// @Summary      Send a print command to the printer
// @Tags         printer
// @Accept       json
// @Produce      json
// @Param        body  body  printerCommandRequest  true  "Command payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/printer/command [post]
// @Security     BearerAuth
func (h *Handler) printerCommand(c *gin.Context) {
	var req printerCommandRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Printer.SendCommand(req.Command); err != nil {
		if h.log != nil {
			h.log.Errorw("printer_command_failed", "err", err, "command", req.Command)
		}
		code := http.StatusBadRequest
		if errors.Is(err, service.ErrPrinterDisabled) {
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "command": req.Command})
}

type printerTestRequest struct {
	IP         string `json:"ip" binding:"required"`
	AccessCode string `json:"access_code" binding:"required"`
	Serial     string `json:"serial" binding:"required"`
}

// @Summary      Test a printer connection
// @Description  Dials the printer once with the given credentials without touching the live connection.
// @Tags         printer
// @Accept       json
// @Produce      json
// @Param        body  body  printerTestRequest  true  "Connection triple"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/printer/test [post]
// @Security     BearerAuth
func (h *Handler) printerTest(c *gin.Context) {
	var req printerTestRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Printer.TestConnection(req.IP, req.AccessCode, req.Serial); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
