package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memPersister struct {
	items     []models.Item
	customers []models.Customer
	loadErr   error
	saves     int
}

func (p *memPersister) Load(ctx context.Context) ([]models.Item, []models.Customer, error) {
	return p.items, p.customers, p.loadErr
}

func (p *memPersister) Save(ctx context.Context, items []models.Item, customers []models.Customer) error {
	p.items = append([]models.Item(nil), items...)
	p.customers = append([]models.Customer(nil), customers...)
	p.saves++
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	sales     []*models.SaleCompletedEvent
	stock     []*models.StockAdjustedEvent
	items     []*models.ItemAddedEvent
	customers []*models.CustomerAddedEvent
	err       error
}

func (p *recordingPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sales = append(p.sales, event)
	return p.err
}

func (p *recordingPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, event)
	return p.err
}

func (p *recordingPublisher) PublishItemAdded(ctx context.Context, event *models.ItemAddedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, event)
	return p.err
}

func (p *recordingPublisher) PublishCustomerAdded(ctx context.Context, event *models.CustomerAddedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customers = append(p.customers, event)
	return p.err
}

type mapMirror map[string]int

func (m mapMirror) SetStock(ctx context.Context, itemID string, quantity int) error {
	m[itemID] = quantity
	return nil
}

var fixedTime = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return fixedTime }),
	}, opts...)
	l, err := NewLedger(context.Background(), &memPersister{}, opts...)
	require.NoError(t, err)
	return l
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	item, err := l.AddItem(ctx, "A", "Apple", decimal.RequireFromString("1.255"), 5)
	require.NoError(t, err)
	assert.Equal(t, "1.26", item.Price.StringFixed(2))

	_, err = l.AddItem(ctx, "A", "Avocado", decimal.NewFromInt(9), 99)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	got, err := l.GetItem("A")
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)
	assert.Equal(t, 5, got.Quantity)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.26")))
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	_, err := l.AddItem(ctx, "", "Nameless", decimal.NewFromInt(1), 1)
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = l.AddItem(ctx, "N", "Negative", decimal.NewFromInt(-1), 1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = l.AddItem(ctx, "Q", "Quantity", decimal.NewFromInt(1), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Empty(t, l.itemSnapshot())
}

func TestAdjustQuantity(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	_, err := l.AddItem(ctx, "A", "Apple", decimal.NewFromInt(1), 5)
	require.NoError(t, err)

	assert.ErrorIs(t, l.AdjustQuantity(ctx, "missing", 3), ErrNotFound)

	for _, q := range []int{3, -1, 0, -50, 12, -2} {
		err := l.AdjustQuantity(ctx, "A", q)
		item, _ := l.GetItem("A")
		if q < 0 {
			assert.ErrorIs(t, err, ErrInvalidQuantity)
		} else {
			require.NoError(t, err)
			assert.Equal(t, q, item.Quantity)
		}
		assert.GreaterOrEqual(t, item.Quantity, 0)
	}

	item, _ := l.GetItem("A")
	assert.Equal(t, 12, item.Quantity)
}

func TestAdjustQuantityNotifies(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	mirror := mapMirror{}
	l := newTestLedger(t, WithPublisher(pub), WithStockMirror(mirror))

	_, err := l.AddItem(ctx, "A", "Apple", decimal.NewFromInt(1), 5)
	require.NoError(t, err)
	require.NoError(t, l.Restock(ctx, "A", 40))

	assert.Equal(t, 40, mirror["A"])
	require.Len(t, pub.items, 1)
	require.Len(t, pub.stock, 1)
	assert.Equal(t, models.EventTypeStockAdjusted, pub.stock[0].EventType)
	assert.Equal(t, 5, pub.stock[0].Previous)
	assert.Equal(t, 40, pub.stock[0].Quantity)
	assert.Equal(t, models.StockReasonRestock, pub.stock[0].Reason)
}

func TestRestockFrom(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := newTestLedger(t, WithPublisher(pub))
	_, err := l.AddItem(ctx, "A", "Apple", decimal.NewFromInt(1), 5)
	require.NoError(t, err)

	err = l.RestockFrom(ctx, "A", 4, 30)
	assert.ErrorIs(t, err, ErrStockChanged)
	item, _ := l.GetItem("A")
	assert.Equal(t, 5, item.Quantity)
	assert.Empty(t, pub.stock)

	require.NoError(t, l.RestockFrom(ctx, "A", 5, 30))
	item, _ = l.GetItem("A")
	assert.Equal(t, 30, item.Quantity)
	require.Len(t, pub.stock, 1)
	assert.Equal(t, models.StockReasonRestock, pub.stock[0].Reason)

	assert.ErrorIs(t, l.RestockFrom(ctx, "missing", 0, 1), ErrNotFound)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	l := newTestLedger(t, WithPublisher(pub))

	_, err := l.AddItem(ctx, "A", "Apple", decimal.NewFromInt(1), 5)
	require.NoError(t, err)
	_, err = l.AddCustomer(ctx, "c1", "Ada", "ada@example.com", "555")
	require.NoError(t, err)
	assert.NoError(t, l.AdjustQuantity(ctx, "A", 4))
}

func TestListItems(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	for _, id := range []string{"C", "A", "B"} {
		_, err := l.AddItem(ctx, id, "item "+id, decimal.NewFromInt(1), 1)
		require.NoError(t, err)
	}

	seq := l.ListItems()
	collect := func() []string {
		var ids []string
		for item := range seq {
			ids = append(ids, item.ID)
		}
		return ids
	}

	assert.Equal(t, []string{"C", "A", "B"}, collect())
	assert.Equal(t, []string{"C", "A", "B"}, collect())

	for item := range seq {
		item.Quantity = 1000
		break
	}
	got, _ := l.GetItem("C")
	assert.Equal(t, 1, got.Quantity)

	_, err := l.AddItem(ctx, "D", "item D", decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B", "D"}, collect())
}

func TestAddCustomer(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := newTestLedger(t, WithPublisher(pub))

	_, err := l.AddCustomer(ctx, "c1", "Ada", "ada@example.com", "555-0100")
	require.NoError(t, err)

	_, err = l.AddCustomer(ctx, "c1", "Bob", "bob@example.com", "555-0199")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	c, err := l.GetCustomer("c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "ada@example.com", c.Email)

	_, err = l.GetCustomer("nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	var ids []string
	for c := range l.ListCustomers() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1"}, ids)
	assert.Len(t, pub.customers, 1)
}

func TestLoadFromPersister(t *testing.T) {
	p := &memPersister{
		items: []models.Item{
			{ID: "A", Name: "Apple", Price: decimal.RequireFromString("0.50"), Quantity: 10},
		},
		customers: []models.Customer{
			{ID: "c1", Name: "Ada", Email: "ada@example.com", Phone: "555"},
		},
	}

	l, err := NewLedger(context.Background(), p, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	item, err := l.GetItem("A")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	_, err = l.GetCustomer("c1")
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := NewLedger(context.Background(), &memPersister{loadErr: errors.New("disk")}, WithLogger(zap.NewNop()))
	assert.Error(t, err)

	dup := &memPersister{items: []models.Item{{ID: "A", Quantity: 1}, {ID: "A", Quantity: 2}}}
	_, err = NewLedger(context.Background(), dup, WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	negative := &memPersister{items: []models.Item{{ID: "A", Quantity: -3}}}
	_, err = NewLedger(context.Background(), negative, WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	l, err := NewLedger(ctx, p, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	_, err = l.AddItem(ctx, "A", "Apple", decimal.RequireFromString("0.75"), 5)
	require.NoError(t, err)
	_, err = l.AddItem(ctx, "B", "Bread", decimal.RequireFromString("2.10"), 2)
	require.NoError(t, err)
	_, err = l.AddCustomer(ctx, "c1", "Ada", "ada@example.com", "555")
	require.NoError(t, err)
	_, err = l.ProcessSale(ctx, "c1", Cart{{ItemID: "A", Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, l.Save(ctx))
	assert.Equal(t, 1, p.saves)

	reloaded, err := NewLedger(ctx, p, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	var before, after []models.Item
	for item := range l.ListItems() {
		before = append(before, item)
	}
	for item := range reloaded.ListItems() {
		after = append(after, item)
	}
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.True(t, before[i].Price.Equal(after[i].Price))
		assert.Equal(t, before[i].Quantity, after[i].Quantity)
	}

	c, err := reloaded.GetCustomer("c1")
	require.NoError(t, err)
	assert.Equal(t, models.Customer{ID: "c1", Name: "Ada", Email: "ada@example.com", Phone: "555"}, c)
	assert.Empty(t, reloaded.Transactions())
}

func TestSyncStockMirror(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{items: []models.Item{
		{ID: "A", Price: decimal.NewFromInt(1), Quantity: 3},
		{ID: "B", Price: decimal.NewFromInt(1), Quantity: 7},
	}}
	mirror := mapMirror{}
	l, err := NewLedger(ctx, p, WithLogger(zap.NewNop()), WithStockMirror(mirror))
	require.NoError(t, err)

	require.NoError(t, l.SyncStockMirror(ctx))
	assert.Equal(t, mapMirror{"A": 3, "B": 7}, mirror)
}
