package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// PostgresStore agrupa los repositorios y expone la misma interfaz que MemoryStore
type PostgresStore struct {
	customers *CustomerRepository
	orders    *OrderRepository
	users     *UserRepository
}

// NewPostgresStore crea el store respaldado por PostgreSQL
func NewPostgresStore(db *DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		customers: NewCustomerRepository(db, logger),
		orders:    NewOrderRepository(db, logger),
		users:     NewUserRepository(db, logger),
	}
}

// Clientes

func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return s.customers.Create(ctx, customer)
}

func (s *PostgresStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return s.customers.Update(ctx, customer)
}

func (s *PostgresStore) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.customers.Delete(ctx, id)
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.customers.Search(ctx, "")
}

func (s *PostgresStore) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	return s.customers.Search(ctx, query)
}

func (s *PostgresStore) ListCustomersHoldingContainers(ctx context.Context) ([]models.Customer, error) {
	return s.customers.ListHoldingContainers(ctx)
}

func (s *PostgresStore) AdjustContainers(ctx context.Context, customerID uuid.UUID, delta int) (int, error) {
	return s.customers.AdjustContainers(ctx, customerID, delta)
}

// Pedidos

func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *PostgresStore) CreateOrders(ctx context.Context, orders []models.Order, containerDelta int) error {
	return s.orders.CreateBatch(ctx, orders, containerDelta)
}

func (s *PostgresStore) ToggleOrderPayment(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.TogglePayment(ctx, id)
}

func (s *PostgresStore) SettleRegularOrders(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.orders.SettleRegular(ctx, customerID)
}

func (s *PostgresStore) ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

func (s *PostgresStore) LastDeliveryBatch(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return s.orders.LastDeliveryBatch(ctx, customerID)
}

func (s *PostgresStore) ListOrdersDeliveredBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.orders.ListDeliveredBetween(ctx, from, to)
}

func (s *PostgresStore) ListOrdersByType(ctx context.Context, types ...models.OrderType) ([]models.Order, error) {
	return s.orders.ListByType(ctx, types...)
}

func (s *PostgresStore) ListUnpaidRegularOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListUnpaidRegular(ctx)
}

// Usuarios

func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	return s.users.UpsertProfile(ctx, profile)
}

func (s *PostgresStore) GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	return s.users.GetRole(ctx, userID)
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return s.users.ListProfiles(ctx)
}

func (s *PostgresStore) InsertRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	return s.users.InsertRole(ctx, userID, role)
}

func (s *PostgresStore) UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	return s.users.UpdateRole(ctx, userID, role)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.users.DeleteUser(ctx, userID)
}
