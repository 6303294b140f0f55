package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// UserRepository maneja perfiles y roles de los usuarios del panel
type UserRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewUserRepository crea una nueva instancia del repositorio
func NewUserRepository(db *DB, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetRole obtiene el rol de un usuario: none sin perfil, pending sin fila en user_roles
func (r *UserRepository) GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		SELECT COALESCE(ur.role, 'pending')
		FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.user_id
		WHERE p.user_id = $1
	`

	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleNone, nil
		}
		return models.RoleNone, fmt.Errorf("error querying role: %w", err)
	}

	return models.Role(role), nil
}

// UpsertProfile crea o actualiza el perfil de un usuario
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	query := `
		INSERT INTO profiles (id, user_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone
	`

	_, err := r.db.ExecWithTimeout(ctx, query,
		profile.ID, profile.UserID, profile.Name, profile.Phone, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting profile: %w", err)
	}

	return nil
}

// ListProfiles obtiene todos los perfiles con su rol, más recientes primero
func (r *UserRepository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		SELECT p.id, p.user_id, p.name, p.phone, COALESCE(ur.role, 'pending'), p.created_at
		FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.user_id
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var profile models.Profile
		var role string
		if err := rows.Scan(&profile.ID, &profile.UserID, &profile.Name, &profile.Phone, &role, &profile.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning profile: %w", err)
		}
		profile.Role = models.Role(role)
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// InsertRole aprueba un usuario pendiente con el rol indicado
func (r *UserRepository) InsertRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	query := `
		INSERT INTO user_roles (user_id, role)
		SELECT user_id, $2 FROM profiles WHERE user_id = $1
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecWithTimeout(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("error inserting role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pending user %s: %w", userID, ledger.ErrNotFound)
	}

	return nil
}

// UpdateRole cambia el rol de un usuario aprobado
func (r *UserRepository) UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	result, err := r.db.ExecWithTimeout(ctx, `UPDATE user_roles SET role = $1 WHERE user_id = $2`, role, userID)
	if err != nil {
		return fmt.Errorf("error updating role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("role for user %s: %w", userID, ledger.ErrNotFound)
	}

	return nil
}

// DeleteUser elimina el perfil; el rol se borra en cascada
func (r *UserRepository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecWithTimeout(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", userID, ledger.ErrNotFound)
	}

	return nil
}
