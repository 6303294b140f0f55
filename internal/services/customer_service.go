package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// CustomerService maneja la lógica de negocio para Customer
type CustomerService struct {
	store  CustomerStore
	now    func() time.Time
	logger *logrus.Logger
}

// NewCustomerService crea una nueva instancia del servicio
func NewCustomerService(store CustomerStore, logger *logrus.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Create crea un nuevo cliente con cero envases registrados
func (s *CustomerService) Create(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error) {
	if err := s.validateCustomerData(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	customer := &models.Customer{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		IsRegular:    req.IsRegular,
		DefaultUnits: req.DefaultUnits,
		RouteID:      req.RouteID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, ledger.ClassifyStoreError("create customer", "customer", customer.ID.String(), err)
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": customer.ID,
		"name":        customer.Name,
		"is_regular":  customer.IsRegular,
	}).Info("Customer created successfully")

	return customer, nil
}

// GetByID obtiene un cliente por ID
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, ledger.ClassifyStoreError("get customer", "customer", id.String(), err)
	}

	return customer, nil
}

// Search obtiene los clientes que coinciden con query; sin query retorna todos
func (s *CustomerService) Search(ctx context.Context, query string) ([]models.Customer, error) {
	query = strings.TrimSpace(query)

	var (
		customers []models.Customer
		err       error
	)
	if query == "" {
		customers, err = s.store.ListCustomers(ctx)
	} else {
		customers, err = s.store.SearchCustomers(ctx, query)
	}
	if err != nil {
		return nil, ledger.ClassifyStoreError("search customers", "customer", query, err)
	}

	return customers, nil
}

// Update actualiza los datos de un cliente sin tocar sus envases
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req *models.CreateCustomerRequest) (*models.Customer, error) {
	if err := s.validateCustomerData(req); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		IsRegular:    req.IsRegular,
		DefaultUnits: req.DefaultUnits,
		RouteID:      req.RouteID,
		UpdatedAt:    s.now().UTC(),
	}

	if err := s.store.UpdateCustomer(ctx, customer); err != nil {
		return nil, ledger.ClassifyStoreError("update customer", "customer", id.String(), err)
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": id,
		"name":        customer.Name,
	}).Info("Customer updated successfully")

	return customer, nil
}

// Delete elimina un cliente y sus pedidos
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return ledger.ClassifyStoreError("delete customer", "customer", id.String(), err)
	}

	s.logger.WithField("customer_id", id).Info("Customer deleted successfully")

	return nil
}

// validateCustomerData valida los datos del cliente
func (s *CustomerService) validateCustomerData(req *models.CreateCustomerRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &ledger.ValidationError{Field: "name", Message: "is required"}
	}
	if len(req.Name) > 255 {
		return &ledger.ValidationError{Field: "name", Message: "too long (max 255 characters)"}
	}
	if len(req.Phone) > 20 {
		return &ledger.ValidationError{Field: "phone", Message: "too long (max 20 characters)"}
	}
	if len(req.Address) > 500 {
		return &ledger.ValidationError{Field: "address", Message: "too long (max 500 characters)"}
	}
	if req.DefaultUnits != nil && *req.DefaultUnits < 0 {
		return &ledger.ValidationError{Field: "default_units", Message: "must not be negative"}
	}

	return nil
}
