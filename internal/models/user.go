package models

import (
	"time"

	"github.com/google/uuid"
)

// Role representa el rol de la sesión actual
type Role string

const (
	RoleNone    Role = "none"
	RolePending Role = "pending"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Assignable indica si el rol puede guardarse en user_roles
func (r Role) Assignable() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Profile representa un usuario registrado en el proveedor de identidad
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoleRequest representa el request para aprobar o cambiar el rol de un usuario
type RoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

// RegisterRequest representa el alta del perfil de un usuario autenticado
type RegisterRequest struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone,omitempty"`
}

// SessionResponse representa la sesión actual
type SessionResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}
