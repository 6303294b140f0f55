package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer representa un cliente del reparto de agua
type Customer struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Phone          string     `json:"phone" db:"phone"`
	Address        string     `json:"address" db:"address"`
	IsRegular      bool       `json:"is_regular" db:"is_regular"`
	ContainersHeld int        `json:"containers_held" db:"containers_held"`
	DefaultUnits   *int       `json:"default_units,omitempty" db:"default_units"`
	RouteID        *uuid.UUID `json:"route_id,omitempty" db:"route_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateCustomerRequest representa el request para crear/actualizar un cliente
type CreateCustomerRequest struct {
	Name         string     `json:"name" binding:"required"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	IsRegular    bool       `json:"is_regular"`
	DefaultUnits *int       `json:"default_units,omitempty"`
	RouteID      *uuid.UUID `json:"route_id,omitempty"`
}

// CustomerResponse representa la respuesta al crear un cliente
type CustomerResponse struct {
	ID string `json:"id"`
}
