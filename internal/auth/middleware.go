// Package auth verifica los tokens del proveedor de identidad y resuelve el
// rol de la sesión para el resto de la aplicación.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Middleware valida el bearer token HS256 y deja usuario y rol en el contexto
func Middleware(secret string, resolver *RoleResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("Missing bearer token"))
			return
		}

		userID, err := parseSubject(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			logger.WithError(err).Debug("Rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("Invalid token"))
			return
		}

		role, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			logger.WithError(err).WithField("user_id", userID).Error("Error resolving session role")
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewInternalError("Error resolving session"))
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), userID, role))
		c.Next()
	}
}

// RequirePredicate rechaza con 403 las sesiones cuyo rol no cumple allow
// (por ejemplo ledger.IsActive o ledger.IsPrivileged)
func RequirePredicate(allow func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allow(RoleFromContext(c.Request.Context())) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewForbiddenError("Insufficient role"))
			return
		}
		c.Next()
	}
}

// parseSubject verifica la firma y retorna el claim sub como UUID
func parseSubject(raw, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(sub)
}
