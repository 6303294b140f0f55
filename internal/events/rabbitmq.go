// Package events distribuye los eventos del ledger a RabbitMQ, Inngest y
// las notificaciones por correo.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher publica cada evento en un exchange topic con el tipo como routing key
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	mu       sync.Mutex
	logger   *logrus.Logger
}

// NewRabbitPublisher abre la conexión y declara el exchange
func NewRabbitPublisher(url, exchange string, logger *logrus.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error dialing RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error opening RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error declaring exchange %s: %w", exchange, err)
	}

	logger.WithField("exchange", exchange).Info("RabbitMQ publisher ready")

	return &RabbitPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish serializa el evento y lo envía como mensaje persistente
func (p *RabbitPublisher) Publish(ctx context.Context, event models.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("error publishing to RabbitMQ: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"exchange":    p.exchange,
		"event":       event.Type,
		"customer_id": event.CustomerID,
	}).Debug("Event published to RabbitMQ")

	return nil
}

// Close cierra la conexión
func (p *RabbitPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
