package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// RoleSource obtiene el rol persistido de un usuario
type RoleSource interface {
	GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// RoleCache guarda roles resueltos; database.RoleCache la implementa sobre Redis
type RoleCache interface {
	Get(ctx context.Context, userID uuid.UUID) (models.Role, bool, error)
	Set(ctx context.Context, userID uuid.UUID, role models.Role) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// RoleResolver resuelve el rol de un usuario consultando primero la caché
type RoleResolver struct {
	source RoleSource
	cache  RoleCache
	logger *logrus.Logger
}

// NewRoleResolver crea un nuevo resolver. cache puede ser nil.
func NewRoleResolver(source RoleSource, cache RoleCache, logger *logrus.Logger) *RoleResolver {
	return &RoleResolver{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Resolve retorna el rol del usuario. Un fallo de la caché no impide la consulta al store.
func (r *RoleResolver) Resolve(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	if r.cache != nil {
		role, ok, err := r.cache.Get(ctx, userID)
		if err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("Error reading role cache")
		} else if ok {
			return role, nil
		}
	}

	role, err := r.source.GetRole(ctx, userID)
	if err != nil {
		return models.RoleNone, fmt.Errorf("error resolving role: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, role); err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("Error writing role cache")
		}
	}

	return role, nil
}

// Invalidate descarta el rol en caché del usuario
func (r *RoleResolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, userID); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Error invalidating role cache")
	}
}
