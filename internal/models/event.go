package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEventType identifica un evento publicado por el ledger
type LedgerEventType string

const (
	EventOrderLogged       LedgerEventType = "aquatrack/order.logged"
	EventOrderScheduled    LedgerEventType = "aquatrack/order.scheduled"
	EventPaymentToggled    LedgerEventType = "aquatrack/payment.toggled"
	EventBillSettled       LedgerEventType = "aquatrack/bill.settled"
	EventContainersUpdated LedgerEventType = "aquatrack/containers.updated"
)

// LedgerEvent es el payload publicado tras cada operación confirmada
type LedgerEvent struct {
	Type           LedgerEventType `json:"type"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	OrderIDs       []uuid.UUID     `json:"order_ids,omitempty"`
	ContainerDelta int             `json:"container_delta,omitempty"`
	ContainersHeld *int            `json:"containers_held,omitempty"`
	SettledCount   int64           `json:"settled_count,omitempty"`
	IsPaid         *bool           `json:"is_paid,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
