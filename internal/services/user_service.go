package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// RoleInvalidator descarta el rol en caché de un usuario
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// UserService maneja la aprobación y los roles de los usuarios del panel
type UserService struct {
	store  UserStore
	roles  RoleInvalidator
	logger *logrus.Logger
}

// NewUserService crea una nueva instancia del servicio. roles puede ser nil.
func NewUserService(store UserStore, roles RoleInvalidator, logger *logrus.Logger) *UserService {
	return &UserService{
		store:  store,
		roles:  roles,
		logger: logger,
	}
}

// Register crea o actualiza el perfil del usuario autenticado; queda pendiente de aprobación
func (s *UserService) Register(ctx context.Context, userID uuid.UUID, req *models.RegisterRequest) (*models.SessionResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ledger.ValidationError{Field: "name", Message: "is required"}
	}

	profile := &models.Profile{
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, ledger.ClassifyStoreError("register user", "user", userID.String(), err)
	}
	s.invalidate(ctx, userID)

	role, err := s.store.GetRole(ctx, userID)
	if err != nil {
		return nil, ledger.ClassifyStoreError("get role", "user", userID.String(), err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("User registered successfully")

	return &models.SessionResponse{UserID: userID, Role: role}, nil
}

// List obtiene todos los usuarios con su rol
func (s *UserService) List(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list users", "user", "", err)
	}
	return profiles, nil
}

// ListPending obtiene los usuarios registrados que aún no tienen rol
func (s *UserService) ListPending(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	pending := []models.Profile{}
	for _, p := range profiles {
		if p.Role == models.RolePending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

// Approve asigna el primer rol a un usuario pendiente
func (s *UserService) Approve(ctx context.Context, userID uuid.UUID, role models.Role) error {
	if !role.Assignable() {
		return &ledger.ValidationError{Field: "role", Message: "must be staff or admin"}
	}

	if err := s.store.InsertRole(ctx, userID, role); err != nil {
		return ledger.ClassifyStoreError("approve user", "pending user", userID.String(), err)
	}
	s.invalidate(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("User approved successfully")

	return nil
}

// ChangeRole cambia el rol de un usuario ya aprobado
func (s *UserService) ChangeRole(ctx context.Context, actor, userID uuid.UUID, role models.Role) error {
	if !role.Assignable() {
		return &ledger.ValidationError{Field: "role", Message: "must be staff or admin"}
	}
	if actor == userID {
		return &ledger.ValidationError{Field: "id", Message: "cannot change your own role"}
	}

	if err := s.store.UpdateRole(ctx, userID, role); err != nil {
		return ledger.ClassifyStoreError("change role", "user role", userID.String(), err)
	}
	s.invalidate(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("User role updated successfully")

	return nil
}

// Delete elimina un usuario y su rol
func (s *UserService) Delete(ctx context.Context, actor, userID uuid.UUID) error {
	if actor == userID {
		return &ledger.ValidationError{Field: "id", Message: "cannot delete yourself"}
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return ledger.ClassifyStoreError("delete user", "user", userID.String(), err)
	}
	s.invalidate(ctx, userID)

	s.logger.WithField("user_id", userID).Info("User deleted successfully")

	return nil
}

func (s *UserService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.roles != nil {
		s.roles.Invalidate(ctx, userID)
	}
}
