package service

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Persister loads and saves the catalog and customer list. Transactions are
// not part of the snapshot.
type Persister interface {
	Load(ctx context.Context) ([]models.Item, []models.Customer, error)
	Save(ctx context.Context, items []models.Item, customers []models.Customer) error
}

// Publisher receives domain events after the ledger state has changed.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishItemAdded(ctx context.Context, event *models.ItemAddedEvent) error
	PublishCustomerAdded(ctx context.Context, event *models.CustomerAddedEvent) error
}

// StockMirror keeps an external read copy of quantities on hand.
type StockMirror interface {
	SetStock(ctx context.Context, itemID string, quantity int) error
}

// Ledger owns items, customers and transactions and is the only thing that
// changes stock quantities. All state is guarded by mu.
//
// notifyMu orders side effects (stock mirror writes, events) by commit order.
// It is always acquired while mu is held and released after mu.
type Ledger struct {
	mu            sync.Mutex
	notifyMu      sync.Mutex
	items         map[string]*models.Item
	itemOrder     []string
	customers     map[string]models.Customer
	customerOrder []string
	transactions  []models.Transaction

	persister Persister
	publisher Publisher
	mirror    StockMirror
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithPublisher sets the domain event publisher
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithStockMirror sets the external stock mirror
func WithStockMirror(m StockMirror) Option {
	return func(l *Ledger) { l.mirror = m }
}

// WithClock overrides the transaction timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger overrides the global logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger and loads items and customers from the persister.
func NewLedger(ctx context.Context, persister Persister, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		items:     make(map[string]*models.Item),
		customers: make(map[string]models.Customer),
		persister: persister,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if persister == nil {
		return l, nil
	}

	ctx, span := util.StartSpan(ctx, "Ledger.Load")
	defer span.End()

	items, customers, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	for _, item := range items {
		if err := l.insertItem(item); err != nil {
			return nil, fmt.Errorf("failed to load item %q: %w", item.ID, err)
		}
	}
	for _, customer := range customers {
		if err := l.insertCustomer(customer); err != nil {
			return nil, fmt.Errorf("failed to load customer %q: %w", customer.ID, err)
		}
	}

	l.logger.Info("Ledger loaded",
		zap.Int("items", len(l.items)),
		zap.Int("customers", len(l.customers)))
	return l, nil
}

// AddItem inserts a new catalog entry. The price is rounded to cents.
func (l *Ledger) AddItem(ctx context.Context, id, name string, price decimal.Decimal, quantity int) (models.Item, error) {
	item := models.Item{ID: id, Name: name, Price: price.Round(2), Quantity: quantity}

	l.mu.Lock()
	if err := l.insertItem(item); err != nil {
		l.mu.Unlock()
		return models.Item{}, fmt.Errorf("add item %q: %w", id, err)
	}
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	l.logger.Info("Item added", zap.String("item_id", id), zap.String("name", name))
	l.publishItemAdded(ctx, item)
	l.mirrorStock(ctx, id, quantity)
	return item, nil
}

func (l *Ledger) insertItem(item models.Item) error {
	switch {
	case item.ID == "":
		return ErrInvalidIdentity
	case item.Price.IsNegative():
		return ErrInvalidPrice
	case item.Quantity < 0:
		return ErrInvalidQuantity
	}
	if _, ok := l.items[item.ID]; ok {
		return ErrDuplicateIdentity
	}
	l.items[item.ID] = &item
	l.itemOrder = append(l.itemOrder, item.ID)
	return nil
}

// AdjustQuantity sets the quantity on hand of an item.
func (l *Ledger) AdjustQuantity(ctx context.Context, id string, quantity int) error {
	return l.setQuantity(ctx, id, quantity, nil, models.StockReasonAdjustment)
}

// Restock sets the quantity on hand on behalf of the inventory tool.
func (l *Ledger) Restock(ctx context.Context, id string, quantity int) error {
	return l.setQuantity(ctx, id, quantity, nil, models.StockReasonRestock)
}

// RestockFrom sets the quantity on hand only if it still equals expected.
// Otherwise it fails with ErrStockChanged and stock is left untouched, so a
// request computed before later sales cannot overwrite them.
func (l *Ledger) RestockFrom(ctx context.Context, id string, expected, quantity int) error {
	return l.setQuantity(ctx, id, quantity, &expected, models.StockReasonRestock)
}

func (l *Ledger) setQuantity(ctx context.Context, id string, quantity int, expected *int, reason string) error {
	l.mu.Lock()
	item, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if quantity < 0 {
		l.mu.Unlock()
		return fmt.Errorf("item %q: %w: %d", id, ErrInvalidQuantity, quantity)
	}
	if expected != nil && item.Quantity != *expected {
		current := item.Quantity
		l.mu.Unlock()
		return fmt.Errorf("item %q: %w: expected %d, have %d", id, ErrStockChanged, *expected, current)
	}
	previous := item.Quantity
	item.Quantity = quantity
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	util.StockAdjustmentsTotal.WithLabelValues(reason).Inc()
	l.logger.Info("Quantity updated",
		zap.String("item_id", id),
		zap.Int("previous", previous),
		zap.Int("quantity", quantity),
		zap.String("reason", reason))

	l.stockChanged(ctx, id, previous, quantity, reason)
	return nil
}

// GetItem returns a copy of the catalog entry.
func (l *Ledger) GetItem(id string) (models.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return *item, nil
}

// ListItems yields copies of the catalog entries in insertion order. Each
// range over the sequence starts from the current state.
func (l *Ledger) ListItems() iter.Seq[models.Item] {
	return func(yield func(models.Item) bool) {
		for _, item := range l.itemSnapshot() {
			if !yield(item) {
				return
			}
		}
	}
}

func (l *Ledger) itemSnapshot() []models.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.itemsLocked()
}

func (l *Ledger) itemsLocked() []models.Item {
	items := make([]models.Item, 0, len(l.itemOrder))
	for _, id := range l.itemOrder {
		items = append(items, *l.items[id])
	}
	return items
}

// AddCustomer registers a new customer.
func (l *Ledger) AddCustomer(ctx context.Context, id, name, email, phone string) (models.Customer, error) {
	customer := models.Customer{ID: id, Name: name, Email: email, Phone: phone}

	l.mu.Lock()
	if err := l.insertCustomer(customer); err != nil {
		l.mu.Unlock()
		return models.Customer{}, fmt.Errorf("add customer %q: %w", id, err)
	}
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	l.logger.Info("Customer added", zap.String("customer_id", id), zap.String("name", name))
	if l.publisher != nil {
		event := &models.CustomerAddedEvent{BaseEvent: newBaseEvent(models.EventTypeCustomerAdded), Customer: customer}
		if err := l.publisher.PublishCustomerAdded(ctx, event); err != nil {
			l.logger.Error("Failed to publish CustomerAdded event", zap.Error(err))
		}
	}
	return customer, nil
}

func (l *Ledger) insertCustomer(customer models.Customer) error {
	if customer.ID == "" {
		return ErrInvalidIdentity
	}
	if _, ok := l.customers[customer.ID]; ok {
		return ErrDuplicateIdentity
	}
	l.customers[customer.ID] = customer
	l.customerOrder = append(l.customerOrder, customer.ID)
	return nil
}

// GetCustomer returns the customer record.
func (l *Ledger) GetCustomer(id string) (models.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	customer, ok := l.customers[id]
	if !ok {
		return models.Customer{}, fmt.Errorf("customer %q: %w", id, ErrNotFound)
	}
	return customer, nil
}

// ListCustomers yields customers in registration order.
func (l *Ledger) ListCustomers() iter.Seq[models.Customer] {
	return func(yield func(models.Customer) bool) {
		for _, customer := range l.customerSnapshot() {
			if !yield(customer) {
				return
			}
		}
	}
}

func (l *Ledger) customerSnapshot() []models.Customer {
	l.mu.Lock()
	defer l.mu.Unlock()

	customers := make([]models.Customer, 0, len(l.customerOrder))
	for _, id := range l.customerOrder {
		customers = append(customers, l.customers[id])
	}
	return customers
}

// Transactions returns all recorded transactions in chronological order.
func (l *Ledger) Transactions() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Transaction, len(l.transactions))
	for i, tx := range l.transactions {
		out[i] = tx.Clone()
	}
	return out
}

// GetTransaction returns the transaction with the given id.
func (l *Ledger) GetTransaction(id int64) (models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// ids are assigned as position + 1
	if id < 1 || id > int64(len(l.transactions)) {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return l.transactions[id-1].Clone(), nil
}

// Save writes the current items and customers through the persister.
func (l *Ledger) Save(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}

	ctx, span := util.StartSpan(ctx, "Ledger.Save")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SnapshotSaveLatency.Observe(time.Since(start).Seconds())
	}()

	items := l.itemSnapshot()
	customers := l.customerSnapshot()
	if err := l.persister.Save(ctx, items, customers); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	l.logger.Info("Ledger saved",
		zap.Int("items", len(items)),
		zap.Int("customers", len(customers)))
	return nil
}

// SyncStockMirror pushes every quantity on hand to the stock mirror.
func (l *Ledger) SyncStockMirror(ctx context.Context) error {
	if l.mirror == nil {
		return nil
	}

	l.logger.Info("Starting stock mirror sync")
	l.mu.Lock()
	items := l.itemsLocked()
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	for _, item := range items {
		if err := l.mirror.SetStock(ctx, item.ID, item.Quantity); err != nil {
			return fmt.Errorf("failed to mirror stock for %q: %w", item.ID, err)
		}
	}
	l.logger.Info("Stock mirror sync completed", zap.Int("count", len(items)))
	return nil
}

func (l *Ledger) stockChanged(ctx context.Context, id string, previous, quantity int, reason string) {
	l.mirrorStock(ctx, id, quantity)

	if l.publisher == nil {
		return
	}
	event := &models.StockAdjustedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockAdjusted),
		ItemID:    id,
		Previous:  previous,
		Quantity:  quantity,
		Reason:    reason,
	}
	if err := l.publisher.PublishStockAdjusted(ctx, event); err != nil {
		l.logger.Error("Failed to publish StockAdjusted event",
			zap.String("item_id", id),
			zap.Error(err))
	}
}

func (l *Ledger) mirrorStock(ctx context.Context, id string, quantity int) {
	if l.mirror == nil {
		return
	}
	if err := l.mirror.SetStock(ctx, id, quantity); err != nil {
		l.logger.Warn("Failed to mirror stock",
			zap.String("item_id", id),
			zap.Error(err))
	}
}

func (l *Ledger) publishItemAdded(ctx context.Context, item models.Item) {
	if l.publisher == nil {
		return
	}
	event := &models.ItemAddedEvent{BaseEvent: newBaseEvent(models.EventTypeItemAdded), Item: item}
	if err := l.publisher.PublishItemAdded(ctx, event); err != nil {
		l.logger.Error("Failed to publish ItemAdded event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
