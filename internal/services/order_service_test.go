package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"boutique/internal/models"
	"boutique/internal/repositories"
	"boutique/internal/services"
	"boutique/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) FindPaged(userID string, page, limit int) ([]models.Order, int64, error) {
	args := m.Called(userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(id string, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockOrderRepository) CountByStatus() (map[string]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockCounterRepository is a mock implementation of repositories.CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) Next(name string) (int64, error) {
	args := m.Called(name)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher is a mock implementation of services.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

// MockMailer is a mock implementation of services.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOrderConfirmation(n models.OrderNotification) error {
	args := m.Called(n)
	return args.Error(0)
}

// newPlacementFixture wires an OrderService over fresh mocks with the given
// stock policy and no notification transports.
func newPlacementFixture(policy services.StockPolicy) (*services.OrderService, *MockOrderRepository, *MockProductRepository, *MockUserRepository, *MockCounterRepository) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	userRepo := new(MockUserRepository)
	counterRepo := new(MockCounterRepository)
	service := services.NewOrderService(orderRepo, productRepo, userRepo, counterRepo, nil, nil, policy)
	return service, orderRepo, productRepo, userRepo, counterRepo
}

func buyer() *models.User {
	return &models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Martin",
		Role:     models.RoleUser,
	}
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	service, _, _, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	result, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{}, models.Address{}, "")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestOrderService_PlaceOrder_ComputesTotalAndFlattens(t *testing.T) {
	service, orderRepo, productRepo, userRepo, counterRepo := newPlacementFixture(services.BestEffortStockReservation)

	cart := map[string]int{"p1": 2, "p2": 1}
	address := models.Address{Street: "1 rue du Port", City: "Dakar", Zip: "12000", Phone: "770000000"}

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 10},
		{ID: "p2", Name: "Écran", Price: 1200, Stock: 5},
	}, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(true, nil).Twice()
	productRepo.On("DecrementStock", "p2").Return(true, nil).Once()
	counterRepo.On("Next", "order").Return(int64(42), nil).Once()

	var created *models.Order
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		created = args.Get(0).(*models.Order)
	}).Return(nil).Once()
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", cart, address, "")
	assert.NoError(t, err)
	assert.Equal(t, "CMD#000042", result.OrderCode)
	assert.Equal(t, 2200.0, result.TotalPrice)

	// The flattened product list has one entry per purchased unit.
	assert.Len(t, created.ProductIDs, 3)
	assert.Equal(t, []string{"p1", "p1", "p2"}, created.ProductIDs)
	assert.Equal(t, models.OrderStatusPending, created.Status)
	assert.Equal(t, 2200.0, created.TotalPrice)
	assert.Equal(t, address, created.Address)

	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
	counterRepo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_ClientCodeUsedVerbatim(t *testing.T) {
	service, orderRepo, productRepo, userRepo, counterRepo := newPlacementFixture(services.BestEffortStockReservation)

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 10},
	}, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(true, nil).Once()

	var created *models.Order
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		created = args.Get(0).(*models.Order)
	}).Return(nil).Once()
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, models.Address{Street: "a", City: "b", Zip: "c"}, "  WEB-17 ")
	assert.NoError(t, err)
	assert.Equal(t, "WEB-17", result.OrderCode)
	assert.Equal(t, "WEB-17", created.Code)

	// The sequence generator is never consulted for client-supplied codes.
	counterRepo.AssertNotCalled(t, "Next", mock.Anything)
}

func TestOrderService_PlaceOrder_MissingProductContributesNothing(t *testing.T) {
	service, orderRepo, productRepo, userRepo, counterRepo := newPlacementFixture(services.BestEffortStockReservation)

	// "ghost" resolves to no product: zero price, but its units still appear
	// in the flattened list.
	cart := map[string]int{"p1": 1, "ghost": 2}

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 10},
	}, nil).Once()
	productRepo.On("DecrementStock", mock.AnythingOfType("string")).Return(true, nil)
	counterRepo.On("Next", "order").Return(int64(1), nil).Once()

	var created *models.Order
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		created = args.Get(0).(*models.Order)
	}).Return(nil).Once()
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", cart, models.Address{Street: "a", City: "b", Zip: "c"}, "")
	assert.NoError(t, err)
	assert.Equal(t, 500.0, result.TotalPrice)
	assert.Len(t, created.ProductIDs, 3)
}

func TestOrderService_PlaceOrder_BestEffortSkipsFailedUnits(t *testing.T) {
	service, orderRepo, productRepo, userRepo, counterRepo := newPlacementFixture(services.BestEffortStockReservation)

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 1},
	}, nil).Once()
	// Two units requested, only one in stock: the second decrement fails and
	// is skipped, the order is still created with the full total.
	productRepo.On("DecrementStock", "p1").Return(true, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(false, nil).Once()
	counterRepo.On("Next", "order").Return(int64(7), nil).Once()

	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 2}, models.Address{Street: "a", City: "b", Zip: "c"}, "")
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, result.TotalPrice)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_StrictPolicyFails(t *testing.T) {
	service, orderRepo, productRepo, userRepo, _ := newPlacementFixture(services.StrictStockReservation)

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 0},
	}, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(false, nil).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, models.Address{Street: "a", City: "b", Zip: "c"}, "")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_PlaceOrder_NotificationFailureIsAbsorbed(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	userRepo := new(MockUserRepository)
	counterRepo := new(MockCounterRepository)
	publisher := new(MockPublisher)
	mailer := new(MockMailer)
	service := services.NewOrderService(orderRepo, productRepo, userRepo, counterRepo, publisher, mailer, services.BestEffortStockReservation)

	userRepo.On("GetByID", "user-1").Return(buyer(), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 10},
	}, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(true, nil).Once()
	counterRepo.On("Next", "order").Return(int64(9), nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()

	// Both notification legs fail; the placement must still succeed.
	dispatched := make(chan struct{})
	publisher.On("Publish", "order.placed", mock.Anything).Return(fmt.Errorf("broker unreachable")).Once()
	mailer.On("SendOrderConfirmation", mock.AnythingOfType("models.OrderNotification")).
		Run(func(args mock.Arguments) { close(dispatched) }).
		Return(fmt.Errorf("smtp unreachable")).Once()

	result, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, models.Address{Street: "a", City: "b", Zip: "c"}, "")
	assert.NoError(t, err)
	assert.Equal(t, "CMD#000009", result.OrderCode)

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never dispatched")
	}
	publisher.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_MetricsRecordEveryOutcome(t *testing.T) {
	// The registry allows a single registration per process, so this test
	// owns the metrics instance.
	m := metrics.NewOrderMetrics()
	service, orderRepo, productRepo, userRepo, counterRepo := newPlacementFixture(services.StrictStockReservation)
	service.SetMetrics(m)

	address := models.Address{Street: "a", City: "b", Zip: "c"}
	errorsBefore := testutil.ToFloat64(m.Placements.WithLabelValues("error"))
	okBefore := testutil.ToFloat64(m.Placements.WithLabelValues("ok"))

	// Failure before anything is resolved.
	_, err := service.PlaceOrder(context.Background(), "user-1", map[string]int{}, address, "")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	// Failure during stock reservation.
	userRepo.On("GetByID", "user-1").Return(buyer(), nil)
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 0},
	}, nil).Once()
	productRepo.On("DecrementStock", "p1").Return(false, nil).Once()
	_, err = service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, address, "")
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	// Failure after the order was persisted.
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500, Stock: 5},
	}, nil)
	productRepo.On("DecrementStock", "p1").Return(true, nil)
	counterRepo.On("Next", "order").Return(int64(1), nil)
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil)
	userRepo.On("ClearCart", "user-1").Return(fmt.Errorf("connection reset")).Once()
	_, err = service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, address, "")
	assert.Error(t, err)

	assert.Equal(t, errorsBefore+3, testutil.ToFloat64(m.Placements.WithLabelValues("error")))
	assert.Equal(t, okBefore, testutil.ToFloat64(m.Placements.WithLabelValues("ok")))

	// The happy path records the ok outcome.
	userRepo.On("ClearCart", "user-1").Return(nil).Once()
	userRepo.On("AppendOrder", "user-1", mock.AnythingOfType("string")).Return(nil).Once()
	_, err = service.PlaceOrder(context.Background(), "user-1", map[string]int{"p1": 1}, address, "")
	assert.NoError(t, err)

	assert.Equal(t, errorsBefore+3, testutil.ToFloat64(m.Placements.WithLabelValues("error")))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.Placements.WithLabelValues("ok")))
}

func TestOrderService_GetOrder_AccessControl(t *testing.T) {
	service, orderRepo, _, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	order := &models.Order{ID: "o1", UserID: "user-1", ProductIDs: []string{"p1"}}
	orderRepo.On("GetByID", "o1").Return(order, nil)

	// A non-owner, non-admin requester is rejected.
	view, err := service.GetOrder(context.Background(), "user-2", models.RoleUser, "o1")
	assert.Nil(t, view)
	assert.ErrorIs(t, err, services.ErrForbidden)

	// Missing orders surface as not found.
	orderRepo.On("GetByID", "nope").Return(nil, fmt.Errorf("order with ID nope: %w", repositories.ErrOrderNotFound))
	_, err = service.GetOrder(context.Background(), "user-1", models.RoleUser, "nope")
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestOrderService_GetOrder_RecomputesFromCurrentPrices(t *testing.T) {
	service, orderRepo, productRepo, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	// Persisted at 2200; the catalog price of p1 has since risen to 600.
	order := &models.Order{
		ID:         "o1",
		UserID:     "user-1",
		ProductIDs: []string{"p1", "p1", "p2"},
		TotalPrice: 2200,
	}
	orderRepo.On("GetByID", "o1").Return(order, nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 600, Stock: 8},
		{ID: "p2", Name: "Écran", Price: 1200, Stock: 4},
	}, nil).Once()

	view, err := service.GetOrder(context.Background(), "user-1", models.RoleUser, "o1")
	assert.NoError(t, err)
	assert.Equal(t, 2400.0, view.CalculatedTotal)
	assert.Equal(t, 2200.0, view.Order.TotalPrice)
	assert.Len(t, view.Products, 2)
	assert.Equal(t, 2, view.Products[0].Count)
}

func TestOrderService_GetOrder_AdminSeesAnyOrder(t *testing.T) {
	service, orderRepo, productRepo, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	order := &models.Order{ID: "o1", UserID: "user-1", ProductIDs: []string{"ghost"}}
	orderRepo.On("GetByID", "o1").Return(order, nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{}, nil).Once()

	view, err := service.GetOrder(context.Background(), "admin-1", models.RoleAdmin, "o1")
	assert.NoError(t, err)
	assert.Equal(t, "Product not found", view.Products[0].Name)
	assert.Equal(t, 0.0, view.CalculatedTotal)
}

func TestOrderService_ListOrders_Pagination(t *testing.T) {
	service, orderRepo, productRepo, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	orders := []models.Order{
		{ID: "o1", UserID: "user-1", ProductIDs: []string{"p1", "p1"}},
		{ID: "o2", UserID: "user-1", ProductIDs: []string{"p1", "p2"}},
	}
	orderRepo.On("FindPaged", "user-1", 1, 10).Return(orders, int64(25), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{
		{ID: "p1", Name: "Clavier", Price: 500},
		{ID: "p2", Name: "Écran", Price: 1200},
	}, nil).Once()

	page, err := service.ListOrders(context.Background(), "user-1", models.RoleUser, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, int64(25), page.Pagination.TotalOrders)
	assert.Equal(t, []string{"p1"}, page.Orders[0].UniqueProductIDs)
	assert.Len(t, page.Orders[1].UniqueProducts, 2)
}

func TestOrderService_ListOrders_AdminSeesAll(t *testing.T) {
	service, orderRepo, productRepo, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	// An empty user scope means every user's orders.
	orderRepo.On("FindPaged", "", 2, 5).Return([]models.Order{}, int64(0), nil).Once()
	productRepo.On("FindByIDs", mock.AnythingOfType("[]string")).Return([]models.Product{}, nil).Maybe()

	page, err := service.ListOrders(context.Background(), "admin-1", models.RoleAdmin, 2, 5)
	assert.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_SetStatus_NoTransitionGuard(t *testing.T) {
	service, orderRepo, _, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	// Re-transitioning an already-terminal order is allowed by design.
	orderRepo.On("UpdateStatus", "o1", models.OrderStatusAccepted).Return(nil).Once()
	orderRepo.On("UpdateStatus", "o1", models.OrderStatusRejected).Return(nil).Once()

	assert.NoError(t, service.SetStatus("o1", models.OrderStatusAccepted))
	assert.NoError(t, service.SetStatus("o1", models.OrderStatusRejected))
	orderRepo.AssertExpectations(t)

	// Only accepted and rejected are valid targets.
	err := service.SetStatus("o1", "shipped")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order status")
}

func TestOrderService_DeleteOrder(t *testing.T) {
	service, orderRepo, _, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	order := &models.Order{ID: "o1", UserID: "user-1"}
	orderRepo.On("GetByID", "o1").Return(order, nil)

	// Non-owner without admin role is rejected.
	err := service.DeleteOrder("user-2", models.RoleUser, "o1")
	assert.ErrorIs(t, err, services.ErrForbidden)

	// The owner may delete.
	orderRepo.On("Delete", "o1").Return(nil).Once()
	assert.NoError(t, service.DeleteOrder("user-1", models.RoleUser, "o1"))
	orderRepo.AssertExpectations(t)
}

func TestOrderService_StatusReport_ZeroFilled(t *testing.T) {
	service, orderRepo, _, _, _ := newPlacementFixture(services.BestEffortStockReservation)

	// Empty ledger: the report still covers all three statuses.
	orderRepo.On("CountByStatus").Return(map[string]int64{}, nil).Once()
	report, err := service.StatusReport()
	assert.NoError(t, err)
	assert.Len(t, report, 3)
	counts := make(map[string]int64)
	for _, entry := range report {
		counts[entry.Status] = entry.Count
	}
	assert.Equal(t, map[string]int64{"pending": 0, "accepted": 0, "rejected": 0}, counts)

	// Existing counts pass through, absent statuses stay zero-filled.
	orderRepo.On("CountByStatus").Return(map[string]int64{"pending": 4, "accepted": 2}, nil).Once()
	report, err = service.StatusReport()
	assert.NoError(t, err)
	counts = make(map[string]int64)
	for _, entry := range report {
		counts[entry.Status] = entry.Count
	}
	assert.Equal(t, map[string]int64{"pending": 4, "accepted": 2, "rejected": 0}, counts)
}
