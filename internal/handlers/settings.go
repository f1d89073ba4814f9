package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chamberctl/internal/models"
	"chamberctl/internal/service"
)

// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.Settings
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/settings [get]
// @Security     BearerAuth
func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.Get())
}

// @Summary      Update settings
// @Description  Partial update; omitted fields are left unchanged.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body  models.SettingsPatch  true  "Fields to change"
// @Success      200   {object}  models.Settings
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/settings [put]
// @Security     BearerAuth
func (h *Handler) updateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if ok := h.bindJSONOrBadRequest(c, &patch); !ok {
		return
	}
	updated, err := h.services.Settings.Update(c.Request.Context(), patch)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("settings_update_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Save a preset
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body  models.Preset  true  "Preset"
// @Success      200   {object}  models.Settings
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/presets [post]
// @Security     BearerAuth
func (h *Handler) savePreset(c *gin.Context) {
	var preset models.Preset
	if ok := h.bindJSONOrBadRequest(c, &preset); !ok {
		return
	}
	updated, err := h.services.Settings.SavePreset(c.Request.Context(), preset)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("preset_save_failed", "err", err, "name", preset.Name)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Delete a preset
// @Tags         settings
// @Produce      json
// @Param        name  path  string  true  "Preset name"
// @Success      200   {object}  models.Settings
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/presets/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deletePreset(c *gin.Context) {
	updated, err := h.services.Settings.DeletePreset(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.presetError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Apply a preset to the settings
// @Tags         settings
// @Produce      json
// @Param        name  path  string  true  "Preset name"
// @Success      200   {object}  models.Settings
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/presets/{name}/apply [post]
// @Security     BearerAuth
func (h *Handler) applyPreset(c *gin.Context) {
	updated, err := h.services.Settings.ApplyPreset(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.presetError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) presetError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrPresetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if h.log != nil {
		h.log.Errorw("preset_operation_failed", "err", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "preset operation failed"})
}
