package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
)

// MemoryStore mantiene clientes, pedidos y perfiles en memoria.
// Se usa en desarrollo (STORE_DRIVER=memory) y en los tests.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]models.Customer
	orders    map[uuid.UUID]models.Order
	sequence  []uuid.UUID
	profiles  map[uuid.UUID]models.Profile
	now       func() time.Time
}

// NewMemoryStore crea un almacenamiento vacío
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[uuid.UUID]models.Customer),
		orders:    make(map[uuid.UUID]models.Order),
		profiles:  make(map[uuid.UUID]models.Profile),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj usado para decidir qué entregas ya ocurrieron
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// CreateCustomer inserta un cliente
func (s *MemoryStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ContainersHeld < 0 {
		return fmt.Errorf("containers_held must not be negative")
	}
	if _, ok := s.customers[customer.ID]; ok {
		return fmt.Errorf("customer already exists: %s", customer.ID)
	}
	s.customers[customer.ID] = *customer
	return nil
}

// UpdateCustomer actualiza los datos de contacto sin tocar containers_held
func (s *MemoryStore) UpdateCustomer(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.customers[customer.ID]
	if !ok {
		return fmt.Errorf("customer %s: %w", customer.ID, ledger.ErrNotFound)
	}
	current.Name = customer.Name
	current.Phone = customer.Phone
	current.Address = customer.Address
	current.IsRegular = customer.IsRegular
	current.DefaultUnits = customer.DefaultUnits
	current.RouteID = customer.RouteID
	current.UpdatedAt = customer.UpdatedAt
	s.customers[customer.ID] = current
	*customer = current
	return nil
}

// DeleteCustomer elimina el cliente y sus pedidos
func (s *MemoryStore) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %s: %w", id, ledger.ErrNotFound)
	}
	delete(s.customers, id)

	kept := s.sequence[:0]
	for _, orderID := range s.sequence {
		if s.orders[orderID].CustomerID == id {
			delete(s.orders, orderID)
			continue
		}
		kept = append(kept, orderID)
	}
	s.sequence = kept
	return nil
}

// GetCustomer implementa ledger.Store
func (s *MemoryStore) GetCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ledger.ErrNotFound)
	}
	return &customer, nil
}

// ListCustomers retorna todos los clientes ordenados por nombre
func (s *MemoryStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.SearchCustomers(ctx, "")
}

// SearchCustomers filtra por nombre, teléfono o dirección sin distinguir mayúsculas
func (s *MemoryStore) SearchCustomers(_ context.Context, query string) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	customers := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(c.Phone, q) ||
			strings.Contains(strings.ToLower(c.Address), q) {
			customers = append(customers, c)
		}
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

// ListCustomersHoldingContainers retorna clientes con envases pendientes, de mayor a menor
func (s *MemoryStore) ListCustomersHoldingContainers(_ context.Context) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var customers []models.Customer
	for _, c := range s.customers {
		if c.ContainersHeld > 0 {
			customers = append(customers, c)
		}
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].ContainersHeld == customers[j].ContainersHeld {
			return customers[i].Name < customers[j].Name
		}
		return customers[i].ContainersHeld > customers[j].ContainersHeld
	})
	return customers, nil
}

// GetOrder implementa ledger.Store
func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ledger.ErrNotFound)
	}
	return s.withCustomerName(order), nil
}

// CreateOrders implementa ledger.Store; pedidos y delta se aplican juntos o no se aplican
func (s *MemoryStore) CreateOrders(_ context.Context, orders []models.Order, containerDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := map[uuid.UUID]bool{}
	for _, order := range orders {
		if _, ok := s.customers[order.CustomerID]; !ok {
			return fmt.Errorf("customer %s: %w", order.CustomerID, ledger.ErrNotFound)
		}
		if order.Units <= 0 {
			return fmt.Errorf("order units must be positive")
		}
		if _, ok := s.orders[order.ID]; ok {
			return fmt.Errorf("order already exists: %s", order.ID)
		}
		touched[order.CustomerID] = true
	}
	if containerDelta != 0 && len(touched) != 1 {
		return fmt.Errorf("container delta requires orders of exactly one customer")
	}

	for customerID := range touched {
		if containerDelta != 0 {
			customer := s.customers[customerID]
			if customer.ContainersHeld+containerDelta < 0 {
				return ledger.ErrInsufficientContainers
			}
			customer.ContainersHeld += containerDelta
			s.customers[customerID] = customer
		}
	}
	for _, order := range orders {
		order.CustomerName = ""
		s.orders[order.ID] = order
		s.sequence = append(s.sequence, order.ID)
	}
	return nil
}

// ToggleOrderPayment implementa ledger.Store
func (s *MemoryStore) ToggleOrderPayment(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ledger.ErrNotFound)
	}
	order.IsPaid = !order.IsPaid
	s.orders[id] = order
	return s.withCustomerName(order), nil
}

// SettleRegularOrders implementa ledger.Store
func (s *MemoryStore) SettleRegularOrders(_ context.Context, customerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var settled int64
	for id, order := range s.orders {
		if ledger.IsDue(order, customerID) {
			order.IsPaid = true
			s.orders[id] = order
			settled++
		}
	}
	return settled, nil
}

// AdjustContainers implementa ledger.Store
func (s *MemoryStore) AdjustContainers(_ context.Context, customerID uuid.UUID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[customerID]
	if !ok {
		return 0, fmt.Errorf("customer %s: %w", customerID, ledger.ErrNotFound)
	}
	if customer.ContainersHeld+delta < 0 {
		return 0, ledger.ErrInsufficientContainers
	}
	customer.ContainersHeld += delta
	s.customers[customerID] = customer
	return customer.ContainersHeld, nil
}

// ListCustomerOrders implementa ledger.Store; más recientes primero
func (s *MemoryStore) ListCustomerOrders(_ context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool { return o.CustomerID == customerID }, false), nil
}

// LastDeliveryBatch implementa ledger.Store
func (s *MemoryStore) LastDeliveryBatch(_ context.Context, customerID uuid.UUID) ([]models.Order, error) {
	now := s.now()
	delivered := s.filterOrders(func(o models.Order) bool {
		return o.CustomerID == customerID && !o.DeliveredAt.After(now)
	}, false)

	var latest time.Time
	for _, o := range delivered {
		if o.DeliveredAt.After(latest) {
			latest = o.DeliveredAt
		}
	}

	var batch []models.Order
	for _, o := range delivered {
		if o.DeliveredAt.Equal(latest) {
			batch = append(batch, o)
		}
	}
	return batch, nil
}

// ListOrdersDeliveredBetween retorna los pedidos con delivered_at en [from, to)
func (s *MemoryStore) ListOrdersDeliveredBetween(_ context.Context, from, to time.Time) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool {
		return !o.DeliveredAt.Before(from) && o.DeliveredAt.Before(to)
	}, true), nil
}

// ListOrdersByType retorna los pedidos de los tipos indicados por delivered_at ascendente
func (s *MemoryStore) ListOrdersByType(_ context.Context, types ...models.OrderType) ([]models.Order, error) {
	wanted := map[models.OrderType]bool{}
	for _, t := range types {
		wanted[t] = true
	}
	return s.filterOrders(func(o models.Order) bool { return wanted[o.OrderType] }, true), nil
}

// ListUnpaidRegularOrders retorna todos los pedidos regulares pendientes
func (s *MemoryStore) ListUnpaidRegularOrders(_ context.Context) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool {
		return o.OrderType == models.OrderTypeRegular && !o.IsPaid
	}, true), nil
}

// filterOrders copia los pedidos que cumplen keep; ascending ordena por delivered_at,
// si no por created_at descendente
func (s *MemoryStore) filterOrders(keep func(models.Order) bool, ascending bool) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for i := len(s.sequence) - 1; i >= 0; i-- {
		order := s.orders[s.sequence[i]]
		if keep(order) {
			out = append(out, *s.withCustomerName(order))
		}
	}
	if ascending {
		sort.SliceStable(out, func(i, j int) bool { return out[i].DeliveredAt.Before(out[j].DeliveredAt) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

func (s *MemoryStore) withCustomerName(order models.Order) *models.Order {
	order.CustomerName = s.customers[order.CustomerID].Name
	return &order
}

// UpsertProfile registra un perfil; se usa al dar de alta usuarios y en tests
func (s *MemoryStore) UpsertProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[profile.UserID]; ok {
		profile.ID = existing.ID
		profile.Role = existing.Role
		profile.CreatedAt = existing.CreatedAt
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.Role == "" {
		profile.Role = models.RolePending
	}
	s.profiles[profile.UserID] = *profile
	return nil
}

// GetRole retorna el rol del usuario: none sin perfil, pending sin rol asignado
func (s *MemoryStore) GetRole(_ context.Context, userID uuid.UUID) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return models.RoleNone, nil
	}
	return profile.Role, nil
}

// ListProfiles retorna todos los perfiles, más recientes primero
func (s *MemoryStore) ListProfiles(_ context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CreatedAt.After(profiles[j].CreatedAt) })
	return profiles, nil
}

// InsertRole asigna el rol a un usuario pendiente
func (s *MemoryStore) InsertRole(_ context.Context, userID uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok || profile.Role != models.RolePending {
		return fmt.Errorf("pending user %s: %w", userID, ledger.ErrNotFound)
	}
	profile.Role = role
	s.profiles[userID] = profile
	return nil
}

// UpdateRole cambia el rol de un usuario aprobado
func (s *MemoryStore) UpdateRole(_ context.Context, userID uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok || profile.Role == models.RolePending {
		return fmt.Errorf("role for user %s: %w", userID, ledger.ErrNotFound)
	}
	profile.Role = role
	s.profiles[userID] = profile
	return nil
}

// DeleteUser elimina perfil y rol
func (s *MemoryStore) DeleteUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return fmt.Errorf("profile %s: %w", userID, ledger.ErrNotFound)
	}
	delete(s.profiles, userID)
	return nil
}
