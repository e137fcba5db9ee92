package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/service"
)

type AnalyticsHandler struct {
	logger    *zap.Logger
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(logger *zap.Logger, analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{logger: logger, analytics: analytics}
}

// Report maneja GET /analytics.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	session, _ := GetSession(c)
	report, err := h.analytics.Report(c.Request.Context(), session)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("analytics report failed", zap.String("user_id", session.UserID()), zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to load analytics. Please try again."))
		return
	}
	c.JSON(http.StatusOK, report)
}
