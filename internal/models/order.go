package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType representa el envase entregado
type ProductType string

const (
	ProductTypeBottle ProductType = "bottle"
	ProductTypeJug    ProductType = "jug"
)

// Valid indica si el tipo de producto es conocido
func (p ProductType) Valid() bool {
	return p == ProductTypeBottle || p == ProductTypeJug
}

// OrderType representa el ciclo de facturación de un pedido
type OrderType string

const (
	OrderTypeRegular OrderType = "regular"
	OrderTypeBulk    OrderType = "bulk"
	OrderTypeEvent   OrderType = "event"
)

// Order representa una entrega de un único tipo de producto
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CustomerID   uuid.UUID       `json:"customer_id" db:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty" db:"customer_name"`
	Units        int             `json:"units" db:"units"`
	ProductType  ProductType     `json:"product_type" db:"product_type"`
	OrderType    OrderType       `json:"order_type" db:"order_type"`
	Price        decimal.Decimal `json:"price" db:"price"`
	IsPaid       bool            `json:"is_paid" db:"is_paid"`
	DeliveredAt  time.Time       `json:"delivered_at" db:"delivered_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Amount retorna units * price
func (o Order) Amount() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(int64(o.Units)))
}

// OrderEntry representa una línea del formulario de pedido
type OrderEntry struct {
	ProductType ProductType `json:"product_type" binding:"required"`
	Units       int         `json:"units"`
}

// LogOrderRequest representa el request para registrar una entrega
type LogOrderRequest struct {
	CustomerID           uuid.UUID    `json:"customer_id" binding:"required"`
	Entries              []OrderEntry `json:"entries" binding:"required"`
	IsPaid               bool         `json:"is_paid"`
	Bulk                 bool         `json:"bulk"`
	Schedule             bool         `json:"schedule"`
	DeliveredAt          *time.Time   `json:"delivered_at,omitempty"`
	UsesCompanyContainer *bool        `json:"uses_company_container,omitempty"`
}

// LogOrderResponse representa la respuesta al registrar una entrega
type LogOrderResponse struct {
	Orders         []Order `json:"orders"`
	ContainerDelta int     `json:"container_delta"`
}

// ContainerAdjustRequest representa un ajuste directo del contador de envases
type ContainerAdjustRequest struct {
	Delta int `json:"delta"`
}

// ReturnRequest representa una devolución de envases, genérica o desglosada por producto
type ReturnRequest struct {
	Count   int `json:"count"`
	Bottles int `json:"bottles"`
	Jugs    int `json:"jugs"`
}

// Total retorna la cantidad total devuelta
func (r ReturnRequest) Total() int {
	if r.IsBreakdown() {
		return r.Bottles + r.Jugs
	}
	return r.Count
}

// IsBreakdown indica si la devolución viene desglosada por producto
func (r ReturnRequest) IsBreakdown() bool {
	return r.Bottles != 0 || r.Jugs != 0
}

// ContainerResponse representa el contador de envases tras un ajuste
type ContainerResponse struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	ContainersHeld int       `json:"containers_held"`
}
