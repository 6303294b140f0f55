package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// BillSource calcula la deuda de un cliente; *ledger.Ledger la implementa
type BillSource interface {
	CustomerBill(ctx context.Context, customerID uuid.UUID) (*models.CustomerBill, error)
}

// OrderLister obtiene los pedidos de un cliente
type OrderLister interface {
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
}

// StatementUploader guarda una copia del estado de cuenta; database.SupabaseClient la implementa
type StatementUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Statement es un estado de cuenta generado
type Statement struct {
	FileName string
	Data     []byte
	URL      string
}

// StatementService genera y archiva los estados de cuenta de los clientes
type StatementService struct {
	bills     BillSource
	orders    OrderLister
	generator *DocumentGenerator
	uploader  StatementUploader
	now       func() time.Time
	logger    *logrus.Logger
}

// NewStatementService crea una nueva instancia del servicio. uploader puede ser nil.
func NewStatementService(bills BillSource, orders OrderLister, generator *DocumentGenerator, uploader StatementUploader, logger *logrus.Logger) *StatementService {
	return &StatementService{
		bills:     bills,
		orders:    orders,
		generator: generator,
		uploader:  uploader,
		now:       time.Now,
		logger:    logger,
	}
}

// Generate produce el PDF y, si hay storage configurado, sube una copia.
// Un fallo de la subida no impide entregar el PDF.
func (s *StatementService) Generate(ctx context.Context, customerID uuid.UUID) (*Statement, error) {
	bill, err := s.bills.CustomerBill(ctx, customerID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListCustomerOrders(ctx, customerID)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list orders", "customer", customerID.String(), err)
	}

	generatedAt := s.now()
	data, err := s.generator.GenerateStatementPDF(bill, orders, generatedAt)
	if err != nil {
		return nil, err
	}

	statement := &Statement{
		FileName: fmt.Sprintf("estado_%s_%s.pdf", customerID, generatedAt.Format("20060102")),
		Data:     data,
	}

	if s.uploader != nil {
		key := fmt.Sprintf("statements/%s/%s", customerID, statement.FileName)
		url, err := s.uploader.Upload(ctx, key, "application/pdf", data)
		if err != nil {
			s.logger.WithError(err).WithField("customer_id", customerID).Warn("Error archiving statement")
		} else {
			statement.URL = url
		}
	}

	return statement, nil
}
