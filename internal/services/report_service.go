package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/sirupsen/logrus"
)

// DateLayout es el formato de las fechas en query params y reportes
const DateLayout = "2006-01-02"

// EventFilter selecciona entregas futuras o pasadas
type EventFilter string

const (
	EventFilterUpcoming EventFilter = "upcoming"
	EventFilterPast     EventFilter = "past"
)

// ReportService calcula los resúmenes del panel
type ReportService struct {
	store    ReportStore
	location *time.Location
	now      func() time.Time
	logger   *logrus.Logger
}

// NewReportService crea una nueva instancia del servicio. Los días se cortan en location.
func NewReportService(store ReportStore, location *time.Location, logger *logrus.Logger) *ReportService {
	if location == nil {
		location = time.Local
	}
	return &ReportService{
		store:    store,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// ParseDate interpreta date en la zona del servicio; vacío significa hoy
func (s *ReportService) ParseDate(date string) (time.Time, error) {
	if date == "" {
		return s.startOfDay(s.now()), nil
	}
	day, err := time.ParseInLocation(DateLayout, date, s.location)
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Field: "date", Message: "must use format YYYY-MM-DD"}
	}
	return day, nil
}

// OrdersForDay obtiene los pedidos entregados en el día indicado
func (s *ReportService) OrdersForDay(ctx context.Context, day time.Time) ([]models.Order, error) {
	from := s.startOfDay(day)
	orders, err := s.store.ListOrdersDeliveredBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, ledger.ClassifyStoreError("list orders", "orders", from.Format(DateLayout), err)
	}
	return orders, nil
}

// DailySummary suma las unidades entregadas en el día, separando pagadas y pendientes
func (s *ReportService) DailySummary(ctx context.Context, day time.Time) (*models.DailySummary, error) {
	orders, err := s.OrdersForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	summary := &models.DailySummary{
		Date:       s.startOfDay(day).Format(DateLayout),
		OrderCount: len(orders),
	}
	for _, order := range orders {
		summary.TotalUnits += order.Units
		if order.IsPaid {
			summary.TotalPaid += order.Units
		} else {
			summary.TotalPending += order.Units
		}
	}

	return summary, nil
}

// EventOrders obtiene pedidos event y bulk: próximos en orden ascendente o pasados del más reciente al más antiguo
func (s *ReportService) EventOrders(ctx context.Context, filter EventFilter) ([]models.Order, error) {
	if filter != EventFilterUpcoming && filter != EventFilterPast {
		return nil, &ledger.ValidationError{Field: "filter", Message: "must be upcoming or past"}
	}

	orders, err := s.store.ListOrdersByType(ctx, models.OrderTypeEvent, models.OrderTypeBulk)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list event orders", "orders", string(filter), err)
	}

	today := s.startOfDay(s.now())
	selected := []models.Order{}
	for _, order := range orders {
		upcoming := !order.DeliveredAt.Before(today)
		if upcoming == (filter == EventFilterUpcoming) {
			selected = append(selected, order)
		}
	}

	if filter == EventFilterPast {
		for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
			selected[i], selected[j] = selected[j], selected[i]
		}
	}

	return selected, nil
}

// Reminders agrupa las entregas programadas próximas y los envases pendientes de devolución
func (s *ReportService) Reminders(ctx context.Context) (*models.Reminders, error) {
	upcoming, err := s.store.ListOrdersByType(ctx, models.OrderTypeEvent)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list event orders", "orders", "", err)
	}

	today := s.startOfDay(s.now())
	deliveries := []models.Order{}
	for _, order := range upcoming {
		if !order.DeliveredAt.Before(today) {
			deliveries = append(deliveries, order)
		}
	}

	holding, err := s.store.ListCustomersHoldingContainers(ctx)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list pending returns", "customers", "", err)
	}
	if holding == nil {
		holding = []models.Customer{}
	}

	return &models.Reminders{
		UpcomingDeliveries: deliveries,
		PendingReturns:     holding,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// OutstandingBills calcula la deuda de cada cliente con pedidos regulares pendientes
func (s *ReportService) OutstandingBills(ctx context.Context) ([]models.CustomerBill, error) {
	unpaid, err := s.store.ListUnpaidRegularOrders(ctx)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list unpaid orders", "orders", "", err)
	}

	byCustomer := map[uuid.UUID][]models.Order{}
	for _, order := range unpaid {
		byCustomer[order.CustomerID] = append(byCustomer[order.CustomerID], order)
	}

	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, ledger.ClassifyStoreError("list customers", "customers", "", err)
	}

	bills := []models.CustomerBill{}
	for _, customer := range customers {
		orders, ok := byCustomer[customer.ID]
		if !ok {
			continue
		}
		bill := ledger.ComputeDue(customer.ID, orders)
		if bill.TotalDue.IsZero() {
			continue
		}
		bills = append(bills, models.CustomerBill{Customer: customer, Bill: bill})
	}

	s.logger.WithField("customers", len(bills)).Debug("Outstanding bills computed")

	return bills, nil
}

func (s *ReportService) startOfDay(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}
