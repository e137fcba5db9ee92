package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/service"
)

const sessionKey = "session"

// SessionMiddleware valida el access token y carga la sesion publicada para su id.
// Un token de una sesion cerrada se rechaza aunque no haya expirado.
func SessionMiddleware(logger *zap.Logger, jwtSvc *service.JWTService, sessions *service.SessionContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil || sessions == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), claims.SessionID, claims.Identity())
		if err != nil {
			switch status := statusFor(err); status {
			case http.StatusUnauthorized:
				c.JSON(status, gin.H{"error": "session ended"})
			case http.StatusForbidden:
				c.JSON(status, gin.H{"error": "account inactive"})
			default:
				logger.Error("session resolve failed", zap.String("session_id", claims.SessionID), zap.Error(err))
				c.JSON(status, gin.H{"error": "could not resolve session"})
			}
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// GetSession obtiene la sesion cargada por SessionMiddleware.
func GetSession(c *gin.Context) (*domain.Session, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok && session != nil
}
