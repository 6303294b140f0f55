package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
)

type contextKey int

const (
	userIDKey contextKey = iota
	roleKey
)

// WithIdentity agrega el usuario y su rol al contexto
func WithIdentity(ctx context.Context, userID uuid.UUID, role models.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// UserIDFromContext retorna el usuario autenticado
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// RoleFromContext retorna el rol de la sesión o none si no hay sesión
func RoleFromContext(ctx context.Context) models.Role {
	if role, ok := ctx.Value(roleKey).(models.Role); ok {
		return role
	}
	return models.RoleNone
}

// ContextRoleProvider resuelve el rol desde el contexto de la petición
type ContextRoleProvider struct{}

// CurrentRole retorna el rol resuelto por el middleware
func (ContextRoleProvider) CurrentRole(ctx context.Context) (models.Role, error) {
	return RoleFromContext(ctx), nil
}
