package ledger_test

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/database"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRole struct {
	role models.Role
}

func (f *fixedRole) CurrentRole(context.Context) (models.Role, error) {
	return f.role, nil
}

type recordingPublisher struct {
	events []models.LedgerEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event models.LedgerEvent) error {
	r.events = append(r.events, event)
	return r.err
}

type fixture struct {
	store  *database.MemoryStore
	role   *fixedRole
	events *recordingPublisher
	ledger *ledger.Ledger
	now    time.Time
}

func newFixture(t *testing.T, tracking ledger.ContainerTracking) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store:  database.NewMemoryStore(),
		role:   &fixedRole{role: models.RoleStaff},
		events: &recordingPublisher{},
		now:    time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	f.store.WithClock(func() time.Time { return f.now.Add(time.Minute) })
	f.ledger = ledger.New(
		f.store,
		f.role,
		ledger.NewStaticPriceBook(decimal.NewFromInt(10), decimal.NewFromInt(40)),
		f.events,
		ledger.Options{ContainerTracking: tracking, Now: func() time.Time { return f.now }},
		logger,
	)
	return f
}

func (f *fixture) customer(t *testing.T, regular bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.CreateCustomer(context.Background(), &models.Customer{
		ID:        id,
		Name:      "Cliente " + id.String()[:8],
		IsRegular: regular,
	}))
	return id
}

func (f *fixture) held(t *testing.T, id uuid.UUID) int {
	t.Helper()
	customer, err := f.store.GetCustomer(context.Background(), id)
	require.NoError(t, err)
	return customer.ContainersHeld
}

func (f *fixture) logOrder(t *testing.T, req *models.LogOrderRequest) *models.LogOrderResponse {
	t.Helper()
	resp, err := f.ledger.LogOrder(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func entry(product models.ProductType, units int) models.OrderEntry {
	return models.OrderEntry{ProductType: product, Units: units}
}

func TestLogOrderTracksContainersForOneTimeCustomer(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)

	resp := f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeBottle, 3), entry(models.ProductTypeJug, 2)},
	})

	require.Len(t, resp.Orders, 2)
	assert.Equal(t, 5, resp.ContainerDelta)
	assert.Equal(t, 5, f.held(t, c))

	prices := map[models.ProductType]decimal.Decimal{}
	for _, o := range resp.Orders {
		assert.Equal(t, models.OrderTypeRegular, o.OrderType)
		assert.False(t, o.IsPaid)
		prices[o.ProductType] = o.Price
	}
	assert.True(t, prices[models.ProductTypeBottle].Equal(decimal.NewFromInt(10)))
	assert.True(t, prices[models.ProductTypeJug].Equal(decimal.NewFromInt(40)))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventOrderLogged, f.events.events[0].Type)
	assert.Equal(t, 5, f.events.events[0].ContainerDelta)
}

func TestLogOrderRegularCustomerKeepsContainers(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, true)

	resp := f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 4)},
	})

	assert.Equal(t, 0, resp.ContainerDelta)
	assert.Equal(t, 0, f.held(t, c))
}

func TestLogOrderExplicitTracking(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingExplicit)
	c := f.customer(t, false)
	yes := true

	f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 2)},
	})
	assert.Equal(t, 0, f.held(t, c))

	f.logOrder(t, &models.LogOrderRequest{
		CustomerID:           c,
		Entries:              []models.OrderEntry{entry(models.ProductTypeJug, 2)},
		UsesCompanyContainer: &yes,
	})
	assert.Equal(t, 2, f.held(t, c))
}

func TestLogOrderValidation(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)

	tests := []struct {
		name    string
		entries []models.OrderEntry
	}{
		{"no entries", nil},
		{"zero units", []models.OrderEntry{entry(models.ProductTypeJug, 0)}},
		{"unknown product", []models.OrderEntry{entry("barrel", 1)}},
		{"duplicate product", []models.OrderEntry{entry(models.ProductTypeJug, 1), entry(models.ProductTypeJug, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.LogOrder(context.Background(), &models.LogOrderRequest{CustomerID: c, Entries: tt.entries})
			var validationErr *ledger.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Equal(t, 0, f.held(t, c))
}

func TestLogOrderSkipsEmptyEntries(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)

	resp := f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeBottle, 0), entry(models.ProductTypeJug, 1)},
	})

	require.Len(t, resp.Orders, 1)
	assert.Equal(t, models.ProductTypeJug, resp.Orders[0].ProductType)
}

func TestLogOrderUnknownCustomer(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)

	_, err := f.ledger.LogOrder(context.Background(), &models.LogOrderRequest{
		CustomerID: uuid.New(),
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 1)},
	})

	assert.True(t, ledger.IsNotFound(err))
}

func TestLogOrderSchedule(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	past := f.now.Add(-time.Hour)
	future := f.now.Add(72 * time.Hour)

	_, err := f.ledger.LogOrder(context.Background(), &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 3)},
		Schedule:   true,
	})
	var scheduleErr *ledger.ScheduleError
	assert.ErrorAs(t, err, &scheduleErr)

	_, err = f.ledger.LogOrder(context.Background(), &models.LogOrderRequest{
		CustomerID:  c,
		Entries:     []models.OrderEntry{entry(models.ProductTypeJug, 3)},
		Schedule:    true,
		DeliveredAt: &past,
	})
	assert.ErrorAs(t, err, &scheduleErr)

	resp := f.logOrder(t, &models.LogOrderRequest{
		CustomerID:  c,
		Entries:     []models.OrderEntry{entry(models.ProductTypeJug, 3)},
		Schedule:    true,
		DeliveredAt: &future,
	})
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, models.OrderTypeEvent, resp.Orders[0].OrderType)
	assert.True(t, resp.Orders[0].DeliveredAt.Equal(future))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventOrderScheduled, last.Type)
	require.NotNil(t, last.DeliveredAt)
	assert.True(t, last.DeliveredAt.Equal(future))
}

func TestLogOrderDeliveredAtSchedulesOrder(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	ctx := context.Background()
	future := f.now.Add(72 * time.Hour)
	past := f.now.Add(-time.Hour)

	resp := f.logOrder(t, &models.LogOrderRequest{
		CustomerID:  c,
		Entries:     []models.OrderEntry{entry(models.ProductTypeBottle, 2)},
		DeliveredAt: &future,
	})
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, models.OrderTypeEvent, resp.Orders[0].OrderType)
	assert.True(t, resp.Orders[0].DeliveredAt.Equal(future))

	bill, err := f.ledger.CustomerBill(ctx, c)
	require.NoError(t, err)
	assert.True(t, bill.Bill.TotalDue.IsZero())

	_, err = f.ledger.LogOrder(ctx, &models.LogOrderRequest{
		CustomerID:  c,
		Entries:     []models.OrderEntry{entry(models.ProductTypeBottle, 2)},
		DeliveredAt: &past,
	})
	var scheduleErr *ledger.ScheduleError
	require.ErrorAs(t, err, &scheduleErr)

	orders, err := f.store.ListCustomerOrders(ctx, c)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestLogOrderRejectsScheduledBulk(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	f.role.role = models.RoleAdmin
	c := f.customer(t, false)
	future := f.now.Add(24 * time.Hour)

	for _, req := range []*models.LogOrderRequest{
		{CustomerID: c, Entries: []models.OrderEntry{entry(models.ProductTypeJug, 5)}, Bulk: true, Schedule: true, DeliveredAt: &future},
		{CustomerID: c, Entries: []models.OrderEntry{entry(models.ProductTypeJug, 5)}, Bulk: true, DeliveredAt: &future},
	} {
		_, err := f.ledger.LogOrder(context.Background(), req)
		var validationErr *ledger.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "bulk", validationErr.Field)
	}
	assert.Equal(t, 0, f.held(t, c))
}

func TestQuantitiesBeyondIntegerRange(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	ctx := context.Background()
	f.logOrder(t, &models.LogOrderRequest{CustomerID: c, Entries: []models.OrderEntry{entry(models.ProductTypeJug, 3)}})

	for _, delta := range []int{math.MinInt, -ledger.MaxQuantity - 1, ledger.MaxQuantity + 1, math.MaxInt} {
		_, err := f.ledger.UpdateContainerCount(ctx, c, delta)
		var validationErr *ledger.ValidationError
		require.ErrorAs(t, err, &validationErr, "delta %d", delta)
		assert.Equal(t, "delta", validationErr.Field)
	}

	requests := []*models.LogOrderRequest{
		{CustomerID: c, Entries: []models.OrderEntry{entry(models.ProductTypeBottle, ledger.MaxQuantity+1)}},
		{CustomerID: c, Entries: []models.OrderEntry{entry(models.ProductTypeBottle, ledger.MaxQuantity), entry(models.ProductTypeJug, 1)}},
	}
	for _, req := range requests {
		_, err := f.ledger.LogOrder(ctx, req)
		var validationErr *ledger.ValidationError
		require.ErrorAs(t, err, &validationErr)
	}

	_, err := f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Count: math.MaxInt})
	var validationErr *ledger.ValidationError
	require.ErrorAs(t, err, &validationErr)

	assert.Equal(t, 3, f.held(t, c))
}

func TestBulkOrdersRequireAdmin(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	req := &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 20)},
		Bulk:       true,
	}

	_, err := f.ledger.LogOrder(context.Background(), req)
	var authErr *ledger.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, f.held(t, c))

	f.role.role = models.RoleAdmin
	resp := f.logOrder(t, req)
	require.Len(t, resp.Orders, 1)
	bulk := resp.Orders[0]
	assert.Equal(t, models.OrderTypeBulk, bulk.OrderType)

	f.role.role = models.RoleStaff
	_, err = f.ledger.TogglePayment(context.Background(), bulk.ID)
	assert.ErrorAs(t, err, &authErr)

	stored, err := f.store.GetOrder(context.Background(), bulk.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)

	f.role.role = models.RoleAdmin
	toggled, err := f.ledger.TogglePayment(context.Background(), bulk.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsPaid)
}

func TestTogglePaymentIsInvolution(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, true)
	order := f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeBottle, 1)},
	}).Orders[0]

	first, err := f.ledger.TogglePayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, first.IsPaid)

	second, err := f.ledger.TogglePayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.IsPaid, second.IsPaid)

	_, err = f.ledger.TogglePayment(context.Background(), uuid.New())
	assert.True(t, ledger.IsNotFound(err))
}

func TestSettleCustomerBill(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	d := f.customer(t, true)
	ctx := context.Background()

	f.logOrder(t, &models.LogOrderRequest{CustomerID: d, Entries: []models.OrderEntry{entry(models.ProductTypeJug, 2)}})
	f.logOrder(t, &models.LogOrderRequest{CustomerID: d, Entries: []models.OrderEntry{entry(models.ProductTypeJug, 2)}})
	f.logOrder(t, &models.LogOrderRequest{CustomerID: d, Entries: []models.OrderEntry{entry(models.ProductTypeBottle, 2)}})
	f.logOrder(t, &models.LogOrderRequest{CustomerID: d, Entries: []models.OrderEntry{entry(models.ProductTypeBottle, 5)}, IsPaid: true})

	// Un pedido event pendiente no entra en la deuda ni en la liquidación
	future := f.now.Add(24 * time.Hour)
	event := f.logOrder(t, &models.LogOrderRequest{
		CustomerID:  d,
		Entries:     []models.OrderEntry{entry(models.ProductTypeJug, 1)},
		Schedule:    true,
		DeliveredAt: &future,
	}).Orders[0]

	bill, err := f.ledger.CustomerBill(ctx, d)
	require.NoError(t, err)
	assert.True(t, bill.Bill.TotalDue.Equal(decimal.NewFromInt(180)), bill.Bill.TotalDue.String())
	assert.Equal(t, 3, bill.Bill.UnpaidOrderCount)
	assert.Equal(t, 2, bill.Bill.TotalBottleUnits)
	assert.Equal(t, 4, bill.Bill.TotalJugUnits)

	settled, err := f.ledger.SettleCustomerBill(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), settled)

	bill, err = f.ledger.CustomerBill(ctx, d)
	require.NoError(t, err)
	assert.True(t, bill.Bill.TotalDue.IsZero())

	orders, err := f.store.ListCustomerOrders(ctx, d)
	require.NoError(t, err)
	for _, o := range orders {
		if o.OrderType == models.OrderTypeRegular {
			assert.True(t, o.IsPaid)
		}
	}
	stored, err := f.store.GetOrder(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)

	// Liquidar de nuevo no cambia nada ni publica eventos
	published := len(f.events.events)
	settled, err = f.ledger.SettleCustomerBill(ctx, d)
	require.NoError(t, err)
	assert.Zero(t, settled)
	assert.Len(t, f.events.events, published)

	_, err = f.ledger.SettleCustomerBill(ctx, uuid.New())
	assert.True(t, ledger.IsNotFound(err))
}

func TestComputeDue(t *testing.T) {
	customerID := uuid.New()
	order := func(units int, price int64, orderType models.OrderType, paid bool) models.Order {
		return models.Order{
			ID:          uuid.New(),
			CustomerID:  customerID,
			Units:       units,
			ProductType: models.ProductTypeJug,
			OrderType:   orderType,
			Price:       decimal.NewFromInt(price),
			IsPaid:      paid,
		}
	}

	orders := []models.Order{
		order(2, 40, models.OrderTypeRegular, false),
		order(1, 40, models.OrderTypeRegular, false),
	}
	base := ledger.ComputeDue(customerID, orders)
	assert.True(t, base.TotalDue.Equal(decimal.NewFromInt(120)))

	extended := append(orders,
		order(5, 40, models.OrderTypeRegular, true),
		order(5, 40, models.OrderTypeBulk, false),
		order(5, 40, models.OrderTypeEvent, false),
	)
	other := order(9, 40, models.OrderTypeRegular, false)
	other.CustomerID = uuid.New()
	extended = append(extended, other)

	assert.True(t, ledger.ComputeDue(customerID, extended).TotalDue.Equal(base.TotalDue))
	assert.Equal(t, 2, ledger.ComputeDue(customerID, extended).UnpaidOrderCount)
	assert.True(t, ledger.ComputeDue(customerID, nil).TotalDue.IsZero())
}

func TestUpdateContainerCountNeverNegative(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	ctx := context.Background()

	f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeBottle, 3), entry(models.ProductTypeJug, 2)},
	})
	require.Equal(t, 5, f.held(t, c))

	held, err := f.ledger.UpdateContainerCount(ctx, c, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, held)

	_, err = f.ledger.UpdateContainerCount(ctx, c, -1)
	var returnErr *ledger.InvalidReturnError
	require.ErrorAs(t, err, &returnErr)
	assert.Equal(t, 1, returnErr.Requested)
	assert.Equal(t, 0, returnErr.Held)
	assert.Equal(t, 0, f.held(t, c))

	_, err = f.ledger.UpdateContainerCount(ctx, c, 0)
	var validationErr *ledger.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.ledger.UpdateContainerCount(ctx, uuid.New(), 1)
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateContainerCountSequence(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	ctx := context.Background()

	for _, delta := range []int{4, -3, 2, -5, -1, 7, -8, -2} {
		before := f.held(t, c)
		_, err := f.ledger.UpdateContainerCount(ctx, c, delta)
		after := f.held(t, c)
		if before+delta < 0 {
			var returnErr *ledger.InvalidReturnError
			assert.ErrorAs(t, err, &returnErr)
			assert.Equal(t, before, after)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, before+delta, after)
		assert.GreaterOrEqual(t, after, 0)
	}
}

func TestReturnContainers(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	c := f.customer(t, false)
	ctx := context.Background()

	f.logOrder(t, &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeBottle, 3), entry(models.ProductTypeJug, 2)},
	})

	var validationErr *ledger.ValidationError
	_, err := f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{})
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Jugs: 3})
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Count: 4, Bottles: 1, Jugs: 1})
	assert.ErrorAs(t, err, &validationErr)

	held, err := f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Bottles: 2, Jugs: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, held)

	var returnErr *ledger.InvalidReturnError
	_, err = f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Count: 3})
	assert.ErrorAs(t, err, &returnErr)

	held, err = f.ledger.ReturnContainers(ctx, c, models.ReturnRequest{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, held)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventContainersUpdated, last.Type)
	assert.Equal(t, -2, last.ContainerDelta)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, ledger.ContainerTrackingAuto)
	f.events.err = errors.New("broker down")
	c := f.customer(t, false)

	resp, err := f.ledger.LogOrder(context.Background(), &models.LogOrderRequest{
		CustomerID: c,
		Entries:    []models.OrderEntry{entry(models.ProductTypeJug, 1)},
	})

	require.NoError(t, err)
	assert.Len(t, resp.Orders, 1)
	assert.Equal(t, 1, f.held(t, c))
}

type failingStore struct {
	*database.MemoryStore
	err error
}

func (s *failingStore) SettleRegularOrders(context.Context, uuid.UUID) (int64, error) {
	return 0, s.err
}

func TestStoreErrorsPropagate(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := &failingStore{MemoryStore: database.NewMemoryStore(), err: errors.New("connection reset")}
	id := uuid.New()
	require.NoError(t, store.CreateCustomer(context.Background(), &models.Customer{ID: id, Name: "Cliente", IsRegular: true}))

	l := ledger.New(store, &fixedRole{role: models.RoleStaff}, ledger.NewStaticPriceBook(decimal.NewFromInt(10), decimal.NewFromInt(40)), nil, ledger.Options{}, logger)

	_, err := l.SettleCustomerBill(context.Background(), id)

	var storeErr *ledger.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, store.err)
}

func TestPolicy(t *testing.T) {
	bulk := models.Order{OrderType: models.OrderTypeBulk}
	regular := models.Order{OrderType: models.OrderTypeRegular}

	assert.True(t, ledger.CanEdit(regular, models.RoleStaff))
	assert.False(t, ledger.CanEdit(bulk, models.RoleStaff))
	assert.True(t, ledger.CanEdit(bulk, models.RoleAdmin))

	assert.True(t, ledger.CanCreateBulkOrder(models.RoleAdmin))
	assert.False(t, ledger.CanCreateBulkOrder(models.RoleStaff))
	assert.False(t, ledger.CanCreateBulkOrder(models.RolePending))

	assert.True(t, ledger.IsActive(models.RoleStaff))
	assert.False(t, ledger.IsActive(models.RolePending))
	assert.False(t, ledger.IsActive(models.RoleNone))
}
