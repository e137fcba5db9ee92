package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/service"
)

// SettingsHandler sirve la configuracion de la cuenta propia.
type SettingsHandler struct {
	logger   *zap.Logger
	settings *service.SettingsService
}

func NewSettingsHandler(logger *zap.Logger, settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{logger: logger, settings: settings}
}

// Get maneja GET /settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	session, _ := GetSession(c)
	settings, err := h.settings.Get(c.Request.Context(), session)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("settings fetch failed", zap.String("user_id", session.UserID()), zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to load settings. Please try again."))
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveName maneja PUT /settings/name.
func (h *SettingsHandler) SaveName(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, _ := GetSession(c)
	if err := h.settings.SaveName(c.Request.Context(), session, req.Name); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("settings save failed", zap.String("user_id", session.UserID()), zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to update settings. Please try again."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": successNotice("Settings Updated", "Your settings have been updated successfully.")})
}

// CancelSubscription maneja POST /settings/subscription/cancel.
func (h *SettingsHandler) CancelSubscription(c *gin.Context) {
	session, _ := GetSession(c)
	if err := h.settings.CancelSubscription(c.Request.Context(), session); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("subscription cancel failed", zap.String("user_id", session.UserID()), zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to cancel subscription. Please try again."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": successNotice("Subscription Cancelled", "Your subscription has been cancelled successfully.")})
}

// DeleteAccount maneja DELETE /settings/account?confirm=true.
func (h *SettingsHandler) DeleteAccount(c *gin.Context) {
	session, _ := GetSession(c)
	confirmed := c.Query("confirm") == "true"
	result, err := h.settings.DeleteAccount(c.Request.Context(), session, optionalRefreshToken(c), confirmed)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("account delete failed", zap.String("user_id", session.UserID()), zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to delete account. Please try again."))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"redirect": result.Redirect,
		"session":  nil,
		"notice":   successNotice("Account Deleted", "Your account has been deleted successfully."),
	})
}
