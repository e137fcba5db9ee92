package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/service"
)

// AuthHandler expone el alta, el ingreso y el cierre de sesion.
type AuthHandler struct {
	logger   *zap.Logger
	sessions *service.SessionContext
}

func NewAuthHandler(logger *zap.Logger, sessions *service.SessionContext) *AuthHandler {
	return &AuthHandler{logger: logger, sessions: sessions}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp maneja POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, pair, err := h.sessions.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure("signup failed", err)
		writeError(c, err, errorNotice("Failed to create account. Please try again."))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "tokens": pair})
}

// SignIn maneja POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, pair, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure("signin failed", err)
		writeError(c, err, errorNotice("Failed to sign in. Please check your credentials."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "tokens": pair})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.logFailure("refresh failed", err)
		writeError(c, err, errorNotice("Your session has expired. Please sign in again."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "tokens": pair})
}

// SignOut maneja POST /auth/signout; el refresh token en el body es opcional.
func (h *AuthHandler) SignOut(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.sessions.SignOut(c.Request.Context(), session.ID, optionalRefreshToken(c)); err != nil {
		h.logFailure("signout failed", err)
		writeError(c, err, errorNotice("Failed to sign out. Please try again."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": nil})
}

// Session maneja GET /session.
func (h *AuthHandler) Session(c *gin.Context) {
	session, _ := GetSession(c)
	c.JSON(http.StatusOK, gin.H{"session": session, "loading": h.sessions.Loading()})
}

func (h *AuthHandler) logFailure(msg string, err error) {
	if service.IsAuthError(err) {
		h.logger.Info(msg, zap.Error(err))
		return
	}
	h.logger.Error(msg, zap.Error(err))
}

func optionalRefreshToken(c *gin.Context) string {
	if c.Request.ContentLength == 0 {
		return ""
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}
