package ledger

import (
	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/shopspring/decimal"
)

// IsDue indica si el pedido cuenta para la deuda del cliente
func IsDue(order models.Order, customerID uuid.UUID) bool {
	return order.CustomerID == customerID &&
		order.OrderType == models.OrderTypeRegular &&
		!order.IsPaid
}

// ComputeDue suma units * price de los pedidos regulares pendientes del cliente.
// Los pedidos pagados, bulk o event no afectan el resultado.
func ComputeDue(customerID uuid.UUID, orders []models.Order) models.BillSummary {
	summary := models.BillSummary{
		CustomerID: customerID,
		TotalDue:   decimal.Zero,
	}

	for _, order := range orders {
		if !IsDue(order, customerID) {
			continue
		}
		summary.TotalDue = summary.TotalDue.Add(order.Amount())
		summary.UnpaidOrderCount++
		switch order.ProductType {
		case models.ProductTypeBottle:
			summary.TotalBottleUnits += order.Units
		case models.ProductTypeJug:
			summary.TotalJugUnits += order.Units
		}
	}

	return summary
}
