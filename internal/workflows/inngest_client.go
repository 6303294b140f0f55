package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hypernova-labs/aquatrack-service/internal/config"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/inngest/inngestgo"
	"github.com/sirupsen/logrus"
)

// InngestClient envía los eventos del ledger a Inngest y sirve sus funciones
type InngestClient struct {
	client inngestgo.Client
	logger *logrus.Logger
}

// NewInngestClient crea una nueva instancia del cliente
func NewInngestClient(cfg *config.Config, logger *logrus.Logger) (*InngestClient, error) {
	if cfg.Inngest.EventKey == "" {
		return nil, fmt.Errorf("INNGEST_EVENT_KEY not configured")
	}

	opts := inngestgo.ClientOpts{
		AppID:    cfg.Inngest.AppID,
		EventKey: &cfg.Inngest.EventKey,
		Dev:      &cfg.Inngest.Dev,
	}
	if cfg.Inngest.SigningKey != "" {
		opts.SigningKey = &cfg.Inngest.SigningKey
	}

	client, err := inngestgo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("error creating Inngest client: %w", err)
	}

	return &InngestClient{
		client: client,
		logger: logger,
	}, nil
}

// Publish envía el evento con su tipo como nombre
func (c *InngestClient) Publish(ctx context.Context, event models.LedgerEvent) error {
	data, err := eventData(event)
	if err != nil {
		return err
	}

	id, err := c.client.Send(ctx, inngestgo.Event{
		Name:      string(event.Type),
		Data:      data,
		Timestamp: event.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("error sending event to Inngest: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"event":    event.Type,
		"event_id": id,
	}).Debug("Event sent to Inngest")

	return nil
}

// Handler retorna el handler HTTP que Inngest invoca para ejecutar las funciones
func (c *InngestClient) Handler() http.Handler {
	return c.client.Serve()
}

// GetClient retorna el cliente de Inngest
func (c *InngestClient) GetClient() inngestgo.Client {
	return c.client
}

// eventData convierte el evento a un mapa con las mismas claves JSON
func eventData(event models.LedgerEvent) (map[string]any, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("error marshaling event: %w", err)
	}

	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("error building event data: %w", err)
	}
	return data, nil
}
