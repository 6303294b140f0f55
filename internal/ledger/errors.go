package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound lo retorna un Store cuando el cliente o pedido referenciado no existe
var ErrNotFound = errors.New("record not found")

// ErrInsufficientContainers lo retorna un Store cuando un decremento dejaría el contador en negativo
var ErrInsufficientContainers = errors.New("insufficient containers held")

// ValidationError indica que la entrada del llamador viola una precondición
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NotFoundError indica que el cliente o pedido no existe
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidReturnError indica una devolución mayor que los envases registrados
type InvalidReturnError struct {
	CustomerID string
	Requested  int
	Held       int
}

func (e *InvalidReturnError) Error() string {
	if e.Held < 0 {
		return fmt.Sprintf("cannot return %d containers for customer %s: exceeds containers held", e.Requested, e.CustomerID)
	}
	return fmt.Sprintf("cannot return %d containers for customer %s: only %d held", e.Requested, e.CustomerID, e.Held)
}

// AuthorizationError indica que el rol actual no permite la acción
type AuthorizationError struct {
	Action string
	Role   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}

// ScheduleError indica una programación de entrega sin fecha válida
type ScheduleError struct {
	Message string
}

func (e *ScheduleError) Error() string {
	return "schedule error: " + e.Message
}

// StoreError envuelve un fallo del almacenamiento sin interpretarlo
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ClassifyStoreError clasifica un error del Store: las centinelas se traducen a errores tipados
// y el resto se propaga como StoreError.
func ClassifyStoreError(op, entity, id string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	default:
		return &StoreError{Op: op, Err: err}
	}
}
