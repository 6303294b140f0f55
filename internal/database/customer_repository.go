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

const customerColumns = `id, name, phone, address, is_regular, containers_held,
	default_units, route_id, created_at, updated_at`

// CustomerRepository maneja las operaciones de base de datos para Customer
type CustomerRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewCustomerRepository crea una nueva instancia del repositorio
func NewCustomerRepository(db *DB, logger *logrus.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

// Create crea un nuevo cliente
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecWithTimeout(ctx, query,
		customer.ID, customer.Name, customer.Phone, customer.Address,
		customer.IsRegular, customer.ContainersHeld, customer.DefaultUnits,
		customer.RouteID, customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating customer: %w", err)
	}

	return nil
}

// GetByID obtiene un cliente por ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying customer: %w", err)
	}

	return customer, nil
}

// Search obtiene los clientes cuyo nombre, teléfono o dirección contienen query
func (r *CustomerRepository) Search(ctx context.Context, query string) ([]models.Customer, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	sqlQuery := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%'
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, query)
	if err != nil {
		return nil, fmt.Errorf("error querying customers: %w", err)
	}
	defer rows.Close()

	return scanCustomers(rows)
}

// ListHoldingContainers obtiene los clientes con envases pendientes de devolución
func (r *CustomerRepository) ListHoldingContainers(ctx context.Context) ([]models.Customer, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE containers_held > 0
		ORDER BY containers_held DESC, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying customers holding containers: %w", err)
	}
	defer rows.Close()

	return scanCustomers(rows)
}

// Update actualiza los datos de un cliente; containers_held sólo cambia por AdjustContainers
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		UPDATE customers
		SET name = $1, phone = $2, address = $3, is_regular = $4,
			default_units = $5, route_id = $6, updated_at = $7
		WHERE id = $8
		RETURNING ` + customerColumns

	updated, err := scanCustomer(r.db.QueryRowContext(ctx, query,
		customer.Name, customer.Phone, customer.Address, customer.IsRegular,
		customer.DefaultUnits, customer.RouteID, customer.UpdatedAt, customer.ID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("customer %s: %w", customer.ID, ledger.ErrNotFound)
		}
		return fmt.Errorf("error updating customer: %w", err)
	}

	*customer = *updated
	return nil
}

// Delete elimina un cliente; sus pedidos se eliminan en cascada
func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecWithTimeout(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("customer %s: %w", id, ledger.ErrNotFound)
	}

	return nil
}

// AdjustContainers suma delta a containers_held en el servidor. La condición del
// WHERE impide el negativo; si no se actualiza ninguna fila se distingue entre
// cliente inexistente y envases insuficientes.
func (r *CustomerRepository) AdjustContainers(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		UPDATE customers
		SET containers_held = containers_held + $1, updated_at = NOW()
		WHERE id = $2 AND containers_held + $1 >= 0
		RETURNING containers_held
	`

	var held int
	err := r.db.QueryRowContext(ctx, query, delta, id).Scan(&held)
	if err == nil {
		return held, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error adjusting containers: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("error checking customer: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("customer %s: %w", id, ledger.ErrNotFound)
	}
	return 0, ledger.ErrInsufficientContainers
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var customer models.Customer
	err := row.Scan(
		&customer.ID, &customer.Name, &customer.Phone, &customer.Address,
		&customer.IsRegular, &customer.ContainersHeld, &customer.DefaultUnits,
		&customer.RouteID, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func scanCustomers(rows *sql.Rows) ([]models.Customer, error) {
	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning customer: %w", err)
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}
