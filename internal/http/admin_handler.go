package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/service"
)

// AdminHandler sirve el panel de administracion.
type AdminHandler struct {
	logger *zap.Logger
	admin  *service.AdminService
}

func NewAdminHandler(logger *zap.Logger, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{logger: logger, admin: admin}
}

// Dashboard maneja GET /admin.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	session, _ := GetSession(c)
	dash, err := h.admin.Dashboard(c.Request.Context(), session)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("admin dashboard failed", zap.Error(err))
		}
		writeError(c, err, errorNotice("Failed to load users. Please try again."))
		return
	}
	c.JSON(http.StatusOK, dash)
}

// UpdateUser maneja PATCH /admin/users/:id con {field, value}.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req struct {
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, _ := GetSession(c)
	profiles, err := h.admin.UpdateProfileField(c.Request.Context(), session, c.Param("id"), req.Field, req.Value)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("admin update failed", zap.String("user_id", c.Param("id")), zap.Error(err))
		}
		notice := errorNotice(fmt.Sprintf("Failed to update user %s. Please try again.", req.Field))
		if profiles != nil {
			c.JSON(status, gin.H{"error": errorCode(err), "notice": notice, "profiles": profiles})
			return
		}
		writeError(c, err, notice)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profiles": profiles,
		"notice":   successNotice("User Updated", fmt.Sprintf("User %s has been updated successfully.", req.Field)),
	})
}

// DeleteUser maneja DELETE /admin/users/:id?confirm=true.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	session, _ := GetSession(c)
	confirmed := c.Query("confirm") == "true"
	profiles, err := h.admin.DeleteProfile(c.Request.Context(), session, c.Param("id"), confirmed)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("admin delete failed", zap.String("user_id", c.Param("id")), zap.Error(err))
		}
		notice := errorNotice("Failed to delete user. Please try again.")
		if profiles != nil {
			c.JSON(statusFor(err), gin.H{"error": errorCode(err), "notice": notice, "profiles": profiles})
			return
		}
		writeError(c, err, notice)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profiles": profiles,
		"notice":   successNotice("User Deleted", "User has been deleted successfully."),
	})
}
