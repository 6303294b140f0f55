package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// CustomerGetter obtiene un cliente por ID
type CustomerGetter interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// SettlementMailer envía el aviso de liquidación
type SettlementMailer interface {
	SendSettlementNotice(customer *models.Customer, settled int64, at time.Time) error
}

// Notifier envía un correo al operador cuando se liquida una cuenta
type Notifier struct {
	customers CustomerGetter
	mailer    SettlementMailer
	logger    *logrus.Logger
}

// NewNotifier crea un nuevo Notifier
func NewNotifier(customers CustomerGetter, mailer SettlementMailer, logger *logrus.Logger) *Notifier {
	return &Notifier{
		customers: customers,
		mailer:    mailer,
		logger:    logger,
	}
}

// Publish ignora todo evento que no sea una liquidación
func (n *Notifier) Publish(ctx context.Context, event models.LedgerEvent) error {
	if event.Type != models.EventBillSettled {
		return nil
	}

	customer, err := n.customers.GetCustomer(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("error loading customer for settlement notice: %w", err)
	}

	if err := n.mailer.SendSettlementNotice(customer, event.SettledCount, event.OccurredAt); err != nil {
		return fmt.Errorf("error sending settlement notice: %w", err)
	}

	return nil
}
