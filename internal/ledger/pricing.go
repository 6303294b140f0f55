package ledger

import (
	"context"
	"fmt"

	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/shopspring/decimal"
)

// StaticPriceBook sirve precios configurados al arrancar
type StaticPriceBook struct {
	Bottle decimal.Decimal
	Jug    decimal.Decimal
}

// NewStaticPriceBook crea una lista de precios fija
func NewStaticPriceBook(bottle, jug decimal.Decimal) *StaticPriceBook {
	return &StaticPriceBook{Bottle: bottle, Jug: jug}
}

// UnitPrice implementa PriceBook
func (p *StaticPriceBook) UnitPrice(_ context.Context, product models.ProductType) (decimal.Decimal, error) {
	switch product {
	case models.ProductTypeBottle:
		return p.Bottle, nil
	case models.ProductTypeJug:
		return p.Jug, nil
	default:
		return decimal.Zero, fmt.Errorf("no price configured for product %q", product)
	}
}
