package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxQuantity es el mayor número de unidades o envases que acepta una operación;
// coincide con el rango de las columnas INTEGER.
const MaxQuantity = math.MaxInt32

// UpdateContainerCount suma delta a containers_held con una única operación atómica.
// Un decremento mayor que los envases registrados falla con InvalidReturnError.
func (l *Ledger) UpdateContainerCount(ctx context.Context, customerID uuid.UUID, delta int) (int, error) {
	if delta == 0 {
		return 0, &ValidationError{Field: "delta", Message: "must not be zero"}
	}
	if delta > MaxQuantity || delta < -MaxQuantity {
		return 0, &ValidationError{Field: "delta", Message: fmt.Sprintf("magnitude must not exceed %d", MaxQuantity)}
	}

	held, err := l.store.AdjustContainers(ctx, customerID, delta)
	if err != nil {
		if errors.Is(err, ErrInsufficientContainers) {
			return 0, l.invalidReturn(ctx, customerID, -delta)
		}
		return 0, ClassifyStoreError("adjust containers", "customer", customerID.String(), err)
	}

	l.logger.WithFields(logrus.Fields{
		"customer_id":     customerID,
		"delta":           delta,
		"containers_held": held,
	}).Info("Container count updated successfully")

	l.publish(ctx, models.LedgerEvent{
		Type:           models.EventContainersUpdated,
		CustomerID:     customerID,
		ContainerDelta: delta,
		ContainersHeld: &held,
	})

	return held, nil
}

// ReturnContainers registra una devolución genérica o desglosada por producto
func (l *Ledger) ReturnContainers(ctx context.Context, customerID uuid.UUID, req models.ReturnRequest) (int, error) {
	if req.Count < 0 || req.Bottles < 0 || req.Jugs < 0 {
		return 0, &ValidationError{Field: "count", Message: "return quantities must not be negative"}
	}
	if req.Count > MaxQuantity || req.Bottles > MaxQuantity || req.Jugs > MaxQuantity {
		return 0, &ValidationError{Field: "count", Message: fmt.Sprintf("return quantities must not exceed %d", MaxQuantity)}
	}
	if req.IsBreakdown() && req.Count != 0 && req.Count != req.Total() {
		return 0, &ValidationError{Field: "count", Message: "count does not match bottles + jugs"}
	}

	total := req.Total()
	if total <= 0 {
		return 0, &ValidationError{Field: "count", Message: "must return at least one container"}
	}

	if req.IsBreakdown() {
		batch, err := l.store.LastDeliveryBatch(ctx, customerID)
		if err != nil {
			return 0, ClassifyStoreError("last delivery batch", "customer", customerID.String(), err)
		}
		if err := checkBreakdown(req, batch); err != nil {
			return 0, err
		}
	}

	return l.UpdateContainerCount(ctx, customerID, -total)
}

// checkBreakdown valida el desglose contra las cantidades de la última entrega
func checkBreakdown(req models.ReturnRequest, batch []models.Order) error {
	delivered := map[models.ProductType]int{}
	for _, order := range batch {
		delivered[order.ProductType] += order.Units
	}
	if req.Bottles > delivered[models.ProductTypeBottle] {
		return &ValidationError{Field: "bottles", Message: fmt.Sprintf("cannot exceed %d delivered in the last batch", delivered[models.ProductTypeBottle])}
	}
	if req.Jugs > delivered[models.ProductTypeJug] {
		return &ValidationError{Field: "jugs", Message: fmt.Sprintf("cannot exceed %d delivered in the last batch", delivered[models.ProductTypeJug])}
	}
	return nil
}

// invalidReturn construye el error con el contador actual; la lectura sólo informa el mensaje
func (l *Ledger) invalidReturn(ctx context.Context, customerID uuid.UUID, requested int) error {
	held := -1
	if customer, err := l.store.GetCustomer(ctx, customerID); err == nil {
		held = customer.ContainersHeld
	}
	return &InvalidReturnError{CustomerID: customerID.String(), Requested: requested, Held: held}
}
