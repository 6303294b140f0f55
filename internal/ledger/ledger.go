// Package ledger contiene la lógica de pedidos, facturación y envases retornables.
// No guarda estado propio: toda mutación se delega en un Store que la aplica
// de forma atómica.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ContainerTracking define cuándo un pedido de un cliente no regular suma envases
type ContainerTracking string

const (
	// ContainerTrackingAuto suma todas las unidades entregadas a clientes no regulares
	ContainerTrackingAuto ContainerTracking = "auto"
	// ContainerTrackingExplicit sólo suma cuando el pedido indica envase de la empresa
	ContainerTrackingExplicit ContainerTracking = "explicit"
)

// Options configura el comportamiento del ledger
type Options struct {
	ContainerTracking ContainerTracking
	Now               func() time.Time
}

// Ledger implementa las operaciones de pedidos y envases
type Ledger struct {
	store    Store
	roles    RoleProvider
	prices   PriceBook
	events   EventPublisher
	tracking ContainerTracking
	now      func() time.Time
	logger   *logrus.Logger
}

// New crea una nueva instancia del ledger. events puede ser nil.
func New(store Store, roles RoleProvider, prices PriceBook, events EventPublisher, opts Options, logger *logrus.Logger) *Ledger {
	if opts.ContainerTracking == "" {
		opts.ContainerTracking = ContainerTrackingAuto
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		store:    store,
		roles:    roles,
		prices:   prices,
		events:   events,
		tracking: opts.ContainerTracking,
		now:      opts.Now,
		logger:   logger,
	}
}

// LogOrder registra una entrega: una fila por tipo de producto y, para clientes
// no regulares, el incremento de envases en la misma petición al Store.
func (l *Ledger) LogOrder(ctx context.Context, req *models.LogOrderRequest) (*models.LogOrderResponse, error) {
	entries, err := normalizeEntries(req.Entries)
	if err != nil {
		return nil, err
	}

	now := l.now()
	deliveredAt := now
	orderType := models.OrderTypeRegular

	// Una fecha de entrega explícita equivale a programar el pedido
	scheduled := req.Schedule || (req.DeliveredAt != nil && !req.DeliveredAt.IsZero())
	if scheduled && req.Bulk {
		return nil, &ValidationError{Field: "bulk", Message: "scheduled orders cannot be bulk"}
	}

	if scheduled {
		if req.DeliveredAt == nil || req.DeliveredAt.IsZero() {
			return nil, &ScheduleError{Message: "delivered_at is required when scheduling"}
		}
		if !req.DeliveredAt.After(now) {
			return nil, &ScheduleError{Message: "delivered_at must be in the future"}
		}
		deliveredAt = *req.DeliveredAt
		orderType = models.OrderTypeEvent
	} else if req.Bulk {
		role, err := l.roles.CurrentRole(ctx)
		if err != nil {
			return nil, fmt.Errorf("error resolving role: %w", err)
		}
		if !CanCreateBulkOrder(role) {
			return nil, &AuthorizationError{Action: "create bulk orders", Role: string(role)}
		}
		orderType = models.OrderTypeBulk
	}

	customer, err := l.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, ClassifyStoreError("get customer", "customer", req.CustomerID.String(), err)
	}

	orders := make([]models.Order, 0, len(entries))
	totalUnits := 0
	for _, entry := range entries {
		price, err := l.prices.UnitPrice(ctx, entry.ProductType)
		if err != nil {
			return nil, fmt.Errorf("error resolving price: %w", err)
		}
		orders = append(orders, models.Order{
			ID:           uuid.New(),
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			Units:        entry.Units,
			ProductType:  entry.ProductType,
			OrderType:    orderType,
			Price:        price,
			IsPaid:       req.IsPaid,
			DeliveredAt:  deliveredAt,
			CreatedAt:    now,
		})
		totalUnits += entry.Units
	}
	if totalUnits > MaxQuantity {
		return nil, &ValidationError{Field: "units", Message: fmt.Sprintf("total must not exceed %d", MaxQuantity)}
	}

	delta := 0
	if l.tracksContainers(customer, req) {
		delta = totalUnits
	}

	if err := l.store.CreateOrders(ctx, orders, delta); err != nil {
		return nil, ClassifyStoreError("create orders", "customer", customer.ID.String(), err)
	}

	l.logger.WithFields(logrus.Fields{
		"customer_id":     customer.ID,
		"order_type":      orderType,
		"orders":          len(orders),
		"units":           totalUnits,
		"container_delta": delta,
	}).Info("Order logged successfully")

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	eventType := models.EventOrderLogged
	if orderType == models.OrderTypeEvent {
		eventType = models.EventOrderScheduled
	}
	l.publish(ctx, models.LedgerEvent{
		Type:           eventType,
		CustomerID:     customer.ID,
		OrderIDs:       ids,
		ContainerDelta: delta,
		DeliveredAt:    &deliveredAt,
	})

	return &models.LogOrderResponse{Orders: orders, ContainerDelta: delta}, nil
}

// tracksContainers decide si el pedido suma envases al cliente
func (l *Ledger) tracksContainers(customer *models.Customer, req *models.LogOrderRequest) bool {
	if customer.IsRegular {
		return false
	}
	if l.tracking == ContainerTrackingExplicit {
		return req.UsesCompanyContainer != nil && *req.UsesCompanyContainer
	}
	return true
}

// normalizeEntries descarta líneas sin unidades y rechaza productos duplicados o desconocidos
func normalizeEntries(entries []models.OrderEntry) ([]models.OrderEntry, error) {
	seen := make(map[models.ProductType]bool, len(entries))
	out := make([]models.OrderEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.ProductType.Valid() {
			return nil, &ValidationError{Field: "product_type", Message: fmt.Sprintf("unknown product type %q", entry.ProductType)}
		}
		if seen[entry.ProductType] {
			return nil, &ValidationError{Field: "entries", Message: fmt.Sprintf("duplicate entry for %s", entry.ProductType)}
		}
		seen[entry.ProductType] = true
		if entry.Units > MaxQuantity {
			return nil, &ValidationError{Field: "units", Message: fmt.Sprintf("must not exceed %d", MaxQuantity)}
		}
		if entry.Units > 0 {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Field: "units", Message: "at least one entry must have units greater than zero"}
	}
	return out, nil
}

// TogglePayment invierte is_paid de un pedido
func (l *Ledger) TogglePayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, ClassifyStoreError("get order", "order", orderID.String(), err)
	}

	role, err := l.roles.CurrentRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("error resolving role: %w", err)
	}
	if !CanEdit(*order, role) {
		return nil, &AuthorizationError{Action: "edit bulk orders", Role: string(role)}
	}

	updated, err := l.store.ToggleOrderPayment(ctx, orderID)
	if err != nil {
		return nil, ClassifyStoreError("toggle payment", "order", orderID.String(), err)
	}

	l.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"is_paid":  updated.IsPaid,
	}).Info("Order payment toggled successfully")

	isPaid := updated.IsPaid
	l.publish(ctx, models.LedgerEvent{
		Type:       models.EventPaymentToggled,
		CustomerID: updated.CustomerID,
		OrderIDs:   []uuid.UUID{orderID},
		IsPaid:     &isPaid,
	})

	return updated, nil
}

// SettleCustomerBill marca como pagados todos los pedidos regulares pendientes del cliente
func (l *Ledger) SettleCustomerBill(ctx context.Context, customerID uuid.UUID) (int64, error) {
	if _, err := l.store.GetCustomer(ctx, customerID); err != nil {
		return 0, ClassifyStoreError("get customer", "customer", customerID.String(), err)
	}

	settled, err := l.store.SettleRegularOrders(ctx, customerID)
	if err != nil {
		return 0, ClassifyStoreError("settle bill", "customer", customerID.String(), err)
	}

	if settled == 0 {
		l.logger.WithField("customer_id", customerID).Debug("Nothing to settle")
		return 0, nil
	}

	l.logger.WithFields(logrus.Fields{
		"customer_id":   customerID,
		"settled_count": settled,
	}).Info("Customer bill settled successfully")

	l.publish(ctx, models.LedgerEvent{
		Type:         models.EventBillSettled,
		CustomerID:   customerID,
		SettledCount: settled,
	})

	return settled, nil
}

// CustomerBill carga los pedidos del cliente y calcula su deuda
func (l *Ledger) CustomerBill(ctx context.Context, customerID uuid.UUID) (*models.CustomerBill, error) {
	customer, err := l.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, ClassifyStoreError("get customer", "customer", customerID.String(), err)
	}

	orders, err := l.store.ListCustomerOrders(ctx, customerID)
	if err != nil {
		return nil, ClassifyStoreError("list orders", "customer", customerID.String(), err)
	}

	return &models.CustomerBill{
		Customer: *customer,
		Bill:     ComputeDue(customerID, orders),
	}, nil
}

// publish envía el evento sin afectar el resultado de la operación ya confirmada
func (l *Ledger) publish(ctx context.Context, event models.LedgerEvent) {
	if l.events == nil {
		return
	}
	event.OccurredAt = l.now().UTC()
	if err := l.events.Publish(ctx, event); err != nil {
		l.logger.WithError(err).WithField("event", event.Type).Warn("Error publishing ledger event")
	}
}

// IsNotFound indica si err es un NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
