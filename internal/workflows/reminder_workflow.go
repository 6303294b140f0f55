package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/sirupsen/logrus"
)

// reminderLead es la antelación del aviso respecto a la entrega
const reminderLead = 2 * time.Hour

// CustomerGetter obtiene un cliente por ID
type CustomerGetter interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// ReminderMailer envía el aviso de entrega programada
type ReminderMailer interface {
	SendDeliveryReminder(customer *models.Customer, deliveredAt time.Time) error
}

// ReminderWorkflow avisa al operador antes de cada entrega programada
type ReminderWorkflow struct {
	customers CustomerGetter
	mailer    ReminderMailer
	logger    *logrus.Logger
}

// NewReminderWorkflow crea una nueva instancia del workflow
func NewReminderWorkflow(customers CustomerGetter, mailer ReminderMailer, logger *logrus.Logger) *ReminderWorkflow {
	return &ReminderWorkflow{
		customers: customers,
		mailer:    mailer,
		logger:    logger,
	}
}

// Register registra la función en el cliente de Inngest
func (w *ReminderWorkflow) Register(c *InngestClient) error {
	_, err := inngestgo.CreateFunction(
		c.GetClient(),
		inngestgo.FunctionOpts{ID: "scheduled-delivery-reminder", Name: "Scheduled delivery reminder"},
		inngestgo.EventTrigger(string(models.EventOrderScheduled), nil),
		w.Handle,
	)
	if err != nil {
		return fmt.Errorf("error registering reminder workflow: %w", err)
	}
	return nil
}

// Handle espera hasta la antelación configurada y envía el aviso
func (w *ReminderWorkflow) Handle(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
	reminder, err := parseScheduled(input.Event.Data)
	if err != nil {
		return nil, err
	}

	if wait := time.Until(reminder.DeliveredAt.Add(-reminderLead)); wait > 0 {
		step.Sleep(ctx, "wait-for-delivery-window", wait)
	}

	_, err = step.Run(ctx, "send-reminder", func(ctx context.Context) (bool, error) {
		return true, w.Remind(ctx, reminder)
	})
	if err != nil {
		return nil, err
	}

	return reminder, nil
}

// Remind carga el cliente y envía el aviso de entrega
func (w *ReminderWorkflow) Remind(ctx context.Context, reminder ScheduledDelivery) error {
	customer, err := w.customers.GetCustomer(ctx, reminder.CustomerID)
	if err != nil {
		return fmt.Errorf("error loading customer for reminder: %w", err)
	}

	if err := w.mailer.SendDeliveryReminder(customer, reminder.DeliveredAt); err != nil {
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"customer_id":  reminder.CustomerID,
		"delivered_at": reminder.DeliveredAt,
	}).Info("Delivery reminder sent successfully")

	return nil
}

// ScheduledDelivery representa el payload de un pedido programado
type ScheduledDelivery struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func parseScheduled(data map[string]any) (ScheduledDelivery, error) {
	var out ScheduledDelivery

	rawID, _ := data["customer_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return out, fmt.Errorf("invalid customer_id in event: %w", err)
	}

	rawAt, _ := data["delivered_at"].(string)
	at, err := time.Parse(time.RFC3339Nano, rawAt)
	if err != nil {
		return out, fmt.Errorf("invalid delivered_at in event: %w", err)
	}

	out.CustomerID = id
	out.DeliveredAt = at
	return out, nil
}
