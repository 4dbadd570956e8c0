package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"boutique/internal/models"
	"boutique/internal/repositories"
	"boutique/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StockPolicy controls how the placement workflow treats units that cannot
// be reserved.
type StockPolicy int

const (
	// BestEffortStockReservation silently skips units whose conditional
	// decrement fails; the order is still created with the full flattened
	// product list and the originally computed total. This is the legacy
	// behavior and the default. There is no compensation for units already
	// consumed when a later unit fails.
	BestEffortStockReservation StockPolicy = iota
	// StrictStockReservation fails the whole placement with
	// ErrInsufficientStock as soon as a unit cannot be reserved. Units
	// consumed before the failure are not returned to stock.
	StrictStockReservation
)

// ParseStockPolicy maps a config string to a StockPolicy, defaulting to
// best-effort.
func ParseStockPolicy(s string) StockPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return StrictStockReservation
	}
	return BestEffortStockReservation
}

// Publisher is the message-queue surface the workflow publishes order
// notifications to.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// Mailer sends the operator confirmation email.
type Mailer interface {
	SendOrderConfirmation(n models.OrderNotification) error
}

// orderCodeCounter is the counter name used to mint order codes.
const orderCodeCounter = "order"

// productCacheTTL bounds staleness of cached product details.
const productCacheTTL = time.Minute

// PlacementResult is what PlaceOrder returns to the caller: the allocated
// code and the server-computed total.
type PlacementResult struct {
	OrderCode  string  `json:"orderCode"`
	TotalPrice float64 `json:"totalPrice"`
}

// OrderLine is one distinct product of an order enriched with current
// catalog detail.
type OrderLine struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"desc"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock"`
	Count       int      `json:"count"`
}

// OrderView is the enriched single-order response. CalculatedTotal is
// recomputed from current catalog prices and can diverge from the persisted
// Order.TotalPrice when prices changed after placement.
type OrderView struct {
	Order           models.Order `json:"order"`
	Products        []OrderLine  `json:"products"`
	CalculatedTotal float64      `json:"calculated_total"`
}

// ProductSummary is the deduplicated product detail attached to listed
// orders.
type ProductSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"desc"`
	Stock       int     `json:"stock"`
}

// OrderSummary is one order in a paged listing.
type OrderSummary struct {
	models.Order
	UniqueProductIDs []string         `json:"uniqueProductIds"`
	UniqueProducts   []ProductSummary `json:"uniqueProducts"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalOrders int64 `json:"totalOrders"`
}

// OrderPage is the paged listing response.
type OrderPage struct {
	Orders     []OrderSummary `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// StatusCount is one entry of the status report.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// OrderService implements the order placement workflow and the ledger
// operations around it. Collaborators (catalog, account directory, sequence
// generator, notification transports) are injected at construction time.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	counterRepo repositories.CounterRepository
	publisher   Publisher
	mailer      Mailer
	redisClient *redis.Client
	orderMetric *metrics.OrderMetrics
	stockPolicy StockPolicy
}

// NewOrderService creates a new OrderService. publisher and mailer may be
// nil; notification legs without a transport are skipped.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	counterRepo repositories.CounterRepository,
	publisher Publisher,
	mailer Mailer,
	stockPolicy StockPolicy,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		counterRepo: counterRepo,
		publisher:   publisher,
		mailer:      mailer,
		stockPolicy: stockPolicy,
	}
}

// SetRedisClient enables the optional product-detail cache used when
// enriching orders.
func (s *OrderService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

// SetMetrics enables placement metrics.
func (s *OrderService) SetMetrics(m *metrics.OrderMetrics) {
	s.orderMetric = m
}

// PlaceOrder validates the cart, resolves authoritative prices, reserves
// stock, allocates an order code, persists the order, updates the user's
// cart and order history, and dispatches a best-effort notification.
//
// The total price is always recomputed server-side from catalog prices;
// client-supplied totals are never trusted. Cart ids that resolve to no
// product contribute nothing to the total but still appear in the flattened
// product list, matching the legacy leniency.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, cart map[string]int, address models.Address, clientCode string) (result *PlacementResult, err error) {
	start := time.Now()
	// Every exit records its outcome, including the failures before and
	// after the durable write.
	defer func() {
		if s.orderMetric == nil {
			return
		}
		if err != nil {
			s.orderMetric.Placements.WithLabelValues("error").Inc()
			return
		}
		s.orderMetric.Placements.WithLabelValues("ok").Inc()
		s.orderMetric.PlacementSeconds.Observe(time.Since(start).Seconds())
	}()

	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ordering user: %w", err)
	}

	// 1. Resolve authoritative unit prices in a single batched lookup.
	ids := make([]string, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}

	// 2. Server-side total and the per-product notification summary.
	var totalPrice float64
	lines := make([]models.NotificationLine, 0, len(products))
	for _, p := range products {
		quantity := cart[p.ID]
		subtotal := p.Price * float64(quantity)
		totalPrice += subtotal
		lines = append(lines, models.NotificationLine{
			Name:     p.Name,
			Price:    p.Price,
			Quantity: quantity,
			Subtotal: subtotal,
		})
	}

	// 3. Flatten the cart: one entry per purchased unit.
	flattened := flattenCart(cart)

	// 4. Reserve stock one unit at a time with atomic conditional decrements.
	skipped := 0
	for _, id := range flattened {
		consumed, err := s.productRepo.DecrementStock(id)
		if err != nil {
			log.Printf("Stock decrement failed for product %s: %v", id, err)
		}
		if consumed {
			continue
		}
		if s.stockPolicy == StrictStockReservation {
			return nil, fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
		}
		skipped++
	}
	if skipped > 0 {
		log.Printf("Order placement skipped %d unit(s) with no stock (best-effort policy)", skipped)
		if s.orderMetric != nil {
			s.orderMetric.StockSkips.Add(float64(skipped))
		}
	}

	// 5. Determine the order code.
	code := strings.TrimSpace(clientCode)
	if code == "" {
		seq, err := s.counterRepo.Next(orderCodeCounter)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate order code: %w", err)
		}
		code = fmt.Sprintf("CMD#%06d", seq)
	}

	// 6. Persist the order. A client-supplied code is not re-validated here;
	// a collision surfaces as the storage uniqueness violation.
	now := time.Now()
	order := &models.Order{
		ID:         uuid.New().String(),
		Code:       code,
		UserID:     userID,
		ProductIDs: flattened,
		Address:    address,
		TotalPrice: totalPrice,
		Status:     models.OrderStatusPending,
		Date:       now,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	// 7. Clear the transient cart and record the order in the user's history.
	if err := s.userRepo.ClearCart(userID); err != nil {
		return nil, fmt.Errorf("order %s created but cart clear failed: %w", code, err)
	}
	if err := s.userRepo.AppendOrder(userID, order.ID); err != nil {
		return nil, fmt.Errorf("order %s created but history update failed: %w", code, err)
	}

	// 8. Fire-and-forget notification: runs after the durable write and must
	// never fail the response.
	notification := models.OrderNotification{
		OrderCode:     code,
		CustomerName:  user.DisplayName(),
		CustomerEmail: user.Email,
		Products:      lines,
		TotalPrice:    totalPrice,
		Address:       address,
		OrderDate:     now.Format("02/01/2006 15:04:05"),
	}
	go s.dispatchNotification(notification)

	return &PlacementResult{OrderCode: code, TotalPrice: totalPrice}, nil
}

// flattenCart expands a product-id to quantity mapping into the flattened
// product list, repeating each id once per unit. Ids are sorted so the
// persisted list is deterministic.
func flattenCart(cart map[string]int) []string {
	ids := make([]string, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var flattened []string
	for _, id := range ids {
		for i := 0; i < cart[id]; i++ {
			flattened = append(flattened, id)
		}
	}
	return flattened
}

// dispatchNotification publishes the order event and sends the operator
// email. Both legs are best-effort: failures are logged and never propagated
// to the placement caller.
func (s *OrderService) dispatchNotification(n models.OrderNotification) {
	if s.publisher != nil {
		body, err := json.Marshal(n)
		if err != nil {
			log.Printf("Failed to marshal order notification for %s: %v", n.OrderCode, err)
		} else if err := s.publisher.Publish("order.placed", body); err != nil {
			log.Printf("Warning: failed to publish order placed event for %s: %v", n.OrderCode, err)
		}
	}

	if s.mailer != nil {
		if err := s.mailer.SendOrderConfirmation(n); err != nil {
			log.Printf("Warning: failed to send order confirmation email for %s: %v", n.OrderCode, err)
		}
	}
}

// GetOrder returns the order enriched with per-line product detail from the
// current catalog state and a total recomputed from current prices. The
// requester must be the order's owner or an administrator.
func (s *OrderService) GetOrder(ctx context.Context, userID, role, orderID string) (*OrderView, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && order.UserID != userID {
		return nil, ErrForbidden
	}

	counts := make(map[string]int)
	uniqueIDs := make([]string, 0)
	for _, id := range order.ProductIDs {
		if counts[id] == 0 {
			uniqueIDs = append(uniqueIDs, id)
		}
		counts[id]++
	}

	details, err := s.resolveProducts(ctx, uniqueIDs)
	if err != nil {
		return nil, err
	}

	var calculatedTotal float64
	productLines := make([]OrderLine, 0, len(uniqueIDs))
	for _, id := range uniqueIDs {
		count := counts[id]
		detail, ok := details[id]
		if !ok {
			// Missing products keep their line with placeholder detail, like
			// the rest of the leniency policy.
			productLines = append(productLines, OrderLine{
				ID:          id,
				Name:        "Product not found",
				Description: "No description available",
				Images:      []string{},
				Count:       count,
			})
			continue
		}
		calculatedTotal += detail.Price * float64(count)
		productLines = append(productLines, OrderLine{
			ID:          id,
			Name:        detail.Name,
			Price:       detail.Price,
			Description: detail.Description,
			Images:      detail.Images,
			Stock:       detail.Stock,
			Count:       count,
		})
	}

	return &OrderView{
		Order:           *order,
		Products:        productLines,
		CalculatedTotal: calculatedTotal,
	}, nil
}

// ListOrders returns one page of orders: all of them for administrators,
// only the requester's own otherwise. Orders are enriched with deduplicated
// product summaries. page defaults to 1 and limit to 10.
func (s *OrderService) ListOrders(ctx context.Context, userID, role string, page, limit int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	scopeUser := userID
	if role == models.RoleAdmin {
		scopeUser = ""
	}

	orders, total, err := s.orderRepo.FindPaged(scopeUser, page, limit)
	if err != nil {
		return nil, err
	}

	// Collect the unique product ids across the whole page, then resolve
	// them in one batched lookup.
	perOrderUnique := make([][]string, len(orders))
	allUnique := make([]string, 0)
	seen := make(map[string]bool)
	for i, order := range orders {
		unique := make([]string, 0)
		local := make(map[string]bool)
		for _, id := range order.ProductIDs {
			if !local[id] {
				local[id] = true
				unique = append(unique, id)
			}
			if !seen[id] {
				seen[id] = true
				allUnique = append(allUnique, id)
			}
		}
		perOrderUnique[i] = unique
	}

	details, err := s.resolveProducts(ctx, allUnique)
	if err != nil {
		return nil, err
	}

	summaries := make([]OrderSummary, len(orders))
	for i, order := range orders {
		populated := make([]ProductSummary, 0, len(perOrderUnique[i]))
		for _, id := range perOrderUnique[i] {
			if detail, ok := details[id]; ok {
				populated = append(populated, ProductSummary{
					ID:          id,
					Name:        detail.Name,
					Price:       detail.Price,
					Description: detail.Description,
					Stock:       detail.Stock,
				})
			}
		}
		summaries[i] = OrderSummary{
			Order:            order,
			UniqueProductIDs: perOrderUnique[i],
			UniqueProducts:   populated,
		}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &OrderPage{
		Orders: summaries,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalOrders: total,
		},
	}, nil
}

// SetStatus transitions an order to accepted or rejected. There is no guard
// against re-transitioning an order that already reached a terminal status.
func (s *OrderService) SetStatus(orderID, status string) error {
	if status != models.OrderStatusAccepted && status != models.OrderStatusRejected {
		return fmt.Errorf("invalid order status: %s", status)
	}
	return s.orderRepo.UpdateStatus(orderID, status)
}

// DeleteOrder removes an order. Only the order's owner or an administrator
// may delete it.
func (s *OrderService) DeleteOrder(userID, role, orderID string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin && order.UserID != userID {
		return ErrForbidden
	}
	return s.orderRepo.Delete(orderID)
}

// StatusReport returns the order count per status. Statuses with no orders
// are zero-filled so the report always covers exactly pending, accepted and
// rejected.
func (s *OrderService) StatusReport() ([]StatusCount, error) {
	counts, err := s.orderRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	report := make([]StatusCount, 0, 3)
	for _, status := range []string{models.OrderStatusPending, models.OrderStatusAccepted, models.OrderStatusRejected} {
		report = append(report, StatusCount{Status: status, Count: counts[status]})
	}
	return report, nil
}

// resolveProducts returns current catalog detail for the given ids, keyed by
// id. When a redis client is configured, per-product entries are cached for
// a short TTL; cache failures fall back to the repository.
func (s *OrderService) resolveProducts(ctx context.Context, ids []string) (map[string]models.Product, error) {
	details := make(map[string]models.Product, len(ids))
	missing := ids

	if s.redisClient != nil {
		missing = make([]string, 0, len(ids))
		for _, id := range ids {
			cached, err := s.redisClient.Get(ctx, productCacheKey(id)).Result()
			if err != nil {
				missing = append(missing, id)
				continue
			}
			var product models.Product
			if err := json.Unmarshal([]byte(cached), &product); err != nil {
				missing = append(missing, id)
				continue
			}
			details[product.ID] = product
		}
	}

	if len(missing) > 0 {
		products, err := s.productRepo.FindByIDs(missing)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			details[p.ID] = p
			if s.redisClient != nil {
				if data, err := json.Marshal(p); err == nil {
					s.redisClient.Set(ctx, productCacheKey(p.ID), data, productCacheTTL)
				}
			}
		}
	}

	return details, nil
}

func productCacheKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}
