package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/shopspring/decimal"
)

// Store es el colaborador de persistencia. Cada método es una única petición
// que el almacenamiento aplica de forma atómica.
type Store interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// CreateOrders inserta los pedidos y suma containerDelta a containers_held
	// del cliente en la misma transacción.
	CreateOrders(ctx context.Context, orders []models.Order, containerDelta int) error
	// ToggleOrderPayment ejecuta is_paid = NOT is_paid en el servidor.
	ToggleOrderPayment(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// SettleRegularOrders marca como pagados todos los pedidos regulares pendientes del cliente.
	SettleRegularOrders(ctx context.Context, customerID uuid.UUID) (int64, error)
	// AdjustContainers ejecuta containers_held = containers_held + delta sólo si el
	// resultado no es negativo; si lo fuera retorna ErrInsufficientContainers.
	AdjustContainers(ctx context.Context, customerID uuid.UUID, delta int) (int, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	// LastDeliveryBatch retorna los pedidos del cliente con el delivered_at más reciente.
	LastDeliveryBatch(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
}

// RoleProvider es el colaborador de identidad
type RoleProvider interface {
	CurrentRole(ctx context.Context) (models.Role, error)
}

// PriceBook resuelve el precio unitario vigente de un producto
type PriceBook interface {
	UnitPrice(ctx context.Context, product models.ProductType) (decimal.Decimal, error)
}

// EventPublisher recibe los eventos de operaciones confirmadas
type EventPublisher interface {
	Publish(ctx context.Context, event models.LedgerEvent) error
}
