package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
)

// CustomerStore persiste los clientes
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	SearchCustomers(ctx context.Context, query string) ([]models.Customer, error)
}

// ReportStore expone las consultas de los reportes
type ReportStore interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListCustomersHoldingContainers(ctx context.Context) ([]models.Customer, error)
	ListOrdersDeliveredBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	ListOrdersByType(ctx context.Context, types ...models.OrderType) ([]models.Order, error)
	ListUnpaidRegularOrders(ctx context.Context) ([]models.Order, error)
}

// UserStore persiste perfiles y roles
type UserStore interface {
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	InsertRole(ctx context.Context, userID uuid.UUID, role models.Role) error
	UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}
