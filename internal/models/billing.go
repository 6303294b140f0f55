package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillSummary agrega los pedidos regulares pendientes de un cliente
type BillSummary struct {
	CustomerID       uuid.UUID       `json:"customer_id"`
	TotalDue         decimal.Decimal `json:"total_due"`
	UnpaidOrderCount int             `json:"unpaid_order_count"`
	TotalBottleUnits int             `json:"total_bottle_units"`
	TotalJugUnits    int             `json:"total_jug_units"`
}

// CustomerBill combina cliente y resumen de deuda
type CustomerBill struct {
	Customer Customer    `json:"customer"`
	Bill     BillSummary `json:"bill"`
}

// SettleResponse representa la respuesta a una liquidación
type SettleResponse struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	SettledCount int64     `json:"settled_count"`
}

// DailySummary representa el resumen de entregas de un día
type DailySummary struct {
	Date         string `json:"date"`
	TotalUnits   int    `json:"total_units"`
	TotalPaid    int    `json:"total_paid"`
	TotalPending int    `json:"total_pending"`
	OrderCount   int    `json:"order_count"`
}

// Reminders agrupa entregas programadas y devoluciones pendientes
type Reminders struct {
	UpcomingDeliveries []Order    `json:"upcoming_deliveries"`
	PendingReturns     []Customer `json:"pending_returns"`
	GeneratedAt        time.Time  `json:"generated_at"`
}
