package database

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewDB(conn), mock
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var customerRowColumns = []string{
	"id", "name", "phone", "address", "is_regular", "containers_held",
	"default_units", "route_id", "created_at", "updated_at",
}

var orderRowColumns = []string{
	"id", "customer_id", "name", "units", "product_type", "order_type",
	"price", "is_paid", "delivered_at", "created_at",
}

func TestCustomerRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db, quietLogger())
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(customerRowColumns).
			AddRow(id.String(), "Casa Pérez", "555-0100", "Calle 1", false, 4, nil, nil, now, now))

	customer, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, customer.ID)
	assert.Equal(t, 4, customer.ContainersHeld)
	assert.Nil(t, customer.DefaultUnits)

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(customerRowColumns))

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepositoryAdjustContainers(t *testing.T) {
	id := uuid.New()
	adjust := regexp.QuoteMeta("SET containers_held = containers_held + $1")
	exists := regexp.QuoteMeta("SELECT EXISTS")

	t.Run("applies delta", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCustomerRepository(db, quietLogger())

		mock.ExpectQuery(adjust).WithArgs(3, id).
			WillReturnRows(sqlmock.NewRows([]string{"containers_held"}).AddRow(7))

		held, err := repo.AdjustContainers(context.Background(), id, 3)
		require.NoError(t, err)
		assert.Equal(t, 7, held)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient containers", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCustomerRepository(db, quietLogger())

		mock.ExpectQuery(adjust).WithArgs(-9, id).WillReturnRows(sqlmock.NewRows([]string{"containers_held"}))
		mock.ExpectQuery(exists).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.AdjustContainers(context.Background(), id, -9)
		assert.ErrorIs(t, err, ledger.ErrInsufficientContainers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCustomerRepository(db, quietLogger())

		mock.ExpectQuery(adjust).WithArgs(-1, id).WillReturnRows(sqlmock.NewRows([]string{"containers_held"}))
		mock.ExpectQuery(exists).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.AdjustContainers(context.Background(), id, -1)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCustomerRepositoryDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db, quietLogger())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM customers")).WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepositorySearch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db, quietLogger())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("name ILIKE")).WithArgs("plaza").
		WillReturnRows(sqlmock.NewRows(customerRowColumns).
			AddRow(uuid.NewString(), "Plaza Norte", "", "", false, 0, 12, nil, now, now).
			AddRow(uuid.NewString(), "Plaza Sur", "", "", true, 0, nil, nil, now, now))

	customers, err := repo.Search(context.Background(), "plaza")
	require.NoError(t, err)
	require.Len(t, customers, 2)
	require.NotNil(t, customers[0].DefaultUnits)
	assert.Equal(t, 12, *customers[0].DefaultUnits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func testOrders(customerID uuid.UUID) []models.Order {
	now := time.Now().UTC()
	return []models.Order{
		{ID: uuid.New(), CustomerID: customerID, Units: 3, ProductType: models.ProductTypeBottle, OrderType: models.OrderTypeRegular, Price: decimal.NewFromInt(10), DeliveredAt: now, CreatedAt: now},
		{ID: uuid.New(), CustomerID: customerID, Units: 2, ProductType: models.ProductTypeJug, OrderType: models.OrderTypeRegular, Price: decimal.NewFromInt(40), DeliveredAt: now, CreatedAt: now},
	}
}

func TestOrderRepositoryCreateBatch(t *testing.T) {
	customerID := uuid.New()
	insert := regexp.QuoteMeta("INSERT INTO orders")
	update := regexp.QuoteMeta("UPDATE customers")

	t.Run("commits orders and delta together", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, quietLogger())

		mock.ExpectBegin()
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(update).WithArgs(5, customerID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateBatch(context.Background(), testOrders(customerID), 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips update without delta", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, quietLogger())

		mock.ExpectBegin()
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateBatch(context.Background(), testOrders(customerID), 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on negative balance", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, quietLogger())

		mock.ExpectBegin()
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(update).WithArgs(-5, customerID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CreateBatch(context.Background(), testOrders(customerID), -5)
		assert.ErrorIs(t, err, ledger.ErrInsufficientContainers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps foreign key violation to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, quietLogger())

		mock.ExpectBegin()
		mock.ExpectExec(insert).WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		err := repo.CreateBatch(context.Background(), testOrders(customerID), 5)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates other failures", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrderRepository(db, quietLogger())
		boom := errors.New("connection reset")

		mock.ExpectBegin()
		mock.ExpectExec(insert).WillReturnError(boom)
		mock.ExpectRollback()

		err := repo.CreateBatch(context.Background(), testOrders(customerID), 0)
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepositoryTogglePayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, quietLogger())
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SET is_paid = NOT is_paid")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(id.String(), uuid.NewString(), "Casa Pérez", 2, "jug", "regular", "40", true, now, now))

	order, err := repo.TogglePayment(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	assert.Equal(t, models.ProductTypeJug, order.ProductType)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(40)))

	mock.ExpectQuery(regexp.QuoteMeta("SET is_paid = NOT is_paid")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	_, err = repo.TogglePayment(context.Background(), id)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositorySettleRegular(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, quietLogger())
	customerID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("SET is_paid = true")).WithArgs(customerID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	settled, err := repo.SettleRegular(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryListByType(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db, quietLogger())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("o.order_type = ANY($1)")).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(uuid.NewString(), uuid.NewString(), "Salón Norte", 20, "jug", "bulk", "40", false, now, now).
			AddRow(uuid.NewString(), uuid.NewString(), "Casa López", 6, "bottle", "event", "10", false, now.Add(time.Hour), now))

	orders, err := repo.ListByType(context.Background(), models.OrderTypeEvent, models.OrderTypeBulk)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderTypeBulk, orders[0].OrderType)
	assert.Equal(t, "Casa López", orders[1].CustomerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, quietLogger())
	userID := uuid.New()
	query := regexp.QuoteMeta("COALESCE(ur.role, 'pending')")

	mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("staff"))
	role, err := repo.GetRole(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, role)

	mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(sqlmock.NewRows([]string{"role"}))
	role, err = repo.GetRole(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryInsertRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, quietLogger())
	userID := uuid.New()
	insert := regexp.QuoteMeta("INSERT INTO user_roles")

	mock.ExpectExec(insert).WithArgs(userID, models.RoleAdmin).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.InsertRole(context.Background(), userID, models.RoleAdmin))

	// Sin perfil o ya aprobado: el INSERT no afecta filas
	mock.ExpectExec(insert).WithArgs(userID, models.RoleAdmin).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.InsertRole(context.Background(), userID, models.RoleAdmin)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListProfiles(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, quietLogger())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles p")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "phone", "role", "created_at"}).
			AddRow(uuid.NewString(), uuid.NewString(), "Ana", "555-0101", "admin", now).
			AddRow(uuid.NewString(), uuid.NewString(), "Luis", nil, "pending", now.Add(-time.Hour)))

	profiles, err := repo.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, models.RoleAdmin, profiles[0].Role)
	require.NotNil(t, profiles[0].Phone)
	assert.Nil(t, profiles[1].Phone)
	assert.Equal(t, models.RolePending, profiles[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
