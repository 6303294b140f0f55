package events

import (
	"context"
	"errors"

	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
)

// Fanout entrega cada evento a todos los publicadores, aunque alguno falle
type Fanout struct {
	publishers []ledger.EventPublisher
}

// NewFanout crea un Fanout ignorando publicadores nil
func NewFanout(publishers ...ledger.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Len retorna la cantidad de publicadores registrados
func (f *Fanout) Len() int {
	return len(f.publishers)
}

// Publish envía el evento a cada publicador y combina los errores
func (f *Fanout) Publish(ctx context.Context, event models.LedgerEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
