package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const orderSelect = `
	SELECT o.id, o.customer_id, c.name, o.units, o.product_type, o.order_type,
		o.price, o.is_paid, o.delivered_at, o.created_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

// OrderRepository maneja las operaciones de base de datos para Order
type OrderRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewOrderRepository crea una nueva instancia del repositorio
func NewOrderRepository(db *DB, logger *logrus.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserta los pedidos y aplica el delta de envases en una transacción
func (r *OrderRepository) CreateBatch(ctx context.Context, orders []models.Order, containerDelta int) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orders (
				id, customer_id, units, product_type, order_type, price,
				is_paid, delivered_at, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9
			)
		`

		for _, order := range orders {
			_, err := tx.ExecContext(ctx, query,
				order.ID, order.CustomerID, order.Units, order.ProductType,
				order.OrderType, order.Price, order.IsPaid, order.DeliveredAt,
				order.CreatedAt,
			)
			if err != nil {
				var pqErr *pq.Error
				if errors.As(err, &pqErr) && pqErr.Code == "23503" {
					return fmt.Errorf("customer %s: %w", order.CustomerID, ledger.ErrNotFound)
				}
				return fmt.Errorf("error inserting order: %w", err)
			}
		}

		if containerDelta == 0 {
			return nil
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET containers_held = containers_held + $1, updated_at = NOW()
			WHERE id = $2 AND containers_held + $1 >= 0
		`, containerDelta, orders[0].CustomerID)
		if err != nil {
			return fmt.Errorf("error updating containers: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ledger.ErrInsufficientContainers
		}

		return nil
	})
}

// GetByID obtiene un pedido por ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying order: %w", err)
	}

	return order, nil
}

// TogglePayment invierte is_paid en el servidor y retorna el pedido actualizado
func (r *OrderRepository) TogglePayment(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		WITH updated AS (
			UPDATE orders SET is_paid = NOT is_paid WHERE id = $1
			RETURNING id, customer_id, units, product_type, order_type,
				price, is_paid, delivered_at, created_at
		)
		SELECT u.id, u.customer_id, c.name, u.units, u.product_type, u.order_type,
			u.price, u.is_paid, u.delivered_at, u.created_at
		FROM updated u
		JOIN customers c ON c.id = u.customer_id
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("error toggling payment: %w", err)
	}

	return order, nil
}

// SettleRegular marca como pagados los pedidos regulares pendientes del cliente en una sola sentencia
func (r *OrderRepository) SettleRegular(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `
		UPDATE orders
		SET is_paid = true
		WHERE customer_id = $1 AND order_type = 'regular' AND is_paid = false
	`

	result, err := r.db.ExecWithTimeout(ctx, query, customerID)
	if err != nil {
		return 0, fmt.Errorf("error settling orders: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	return rowsAffected, nil
}

// ListByCustomer obtiene los pedidos de un cliente, más recientes primero
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, ` WHERE o.customer_id = $1 ORDER BY o.created_at DESC`, customerID)
}

// LastDeliveryBatch obtiene los pedidos ya entregados con el delivered_at más reciente del cliente
func (r *OrderRepository) LastDeliveryBatch(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, `
		WHERE o.customer_id = $1 AND o.delivered_at = (
			SELECT MAX(delivered_at) FROM orders
			WHERE customer_id = $1 AND delivered_at <= NOW()
		)
		ORDER BY o.product_type`, customerID)
}

// ListDeliveredBetween obtiene los pedidos con delivered_at en [from, to)
func (r *OrderRepository) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return r.list(ctx, ` WHERE o.delivered_at >= $1 AND o.delivered_at < $2 ORDER BY o.delivered_at`, from, to)
}

// ListByType obtiene los pedidos de los tipos indicados por delivered_at ascendente
func (r *OrderRepository) ListByType(ctx context.Context, types ...models.OrderType) ([]models.Order, error) {
	values := make([]string, len(types))
	for i, t := range types {
		values[i] = string(t)
	}
	return r.list(ctx, ` WHERE o.order_type = ANY($1) ORDER BY o.delivered_at`, pq.Array(values))
}

// ListUnpaidRegular obtiene todos los pedidos regulares pendientes
func (r *OrderRepository) ListUnpaidRegular(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, ` WHERE o.order_type = 'regular' AND o.is_paid = false ORDER BY o.delivered_at`)
}

func (r *OrderRepository) list(ctx context.Context, where string, args ...interface{}) ([]models.Order, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, orderSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.CustomerName, &order.Units,
		&order.ProductType, &order.OrderType, &order.Price, &order.IsPaid,
		&order.DeliveredAt, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
