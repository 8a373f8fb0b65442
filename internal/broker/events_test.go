package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	key   string
	event interface{}
}

type fakeWriter struct {
	events []capturedEvent
}

func (w *fakeWriter) PublishEvent(ctx context.Context, key string, event interface{}) error {
	w.events = append(w.events, capturedEvent{key: key, event: event})
	return nil
}

func TestEventPublisherKeys(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, ep.PublishSaleCompleted(ctx, &models.SaleCompletedEvent{TransactionID: 12, Total: decimal.NewFromInt(5)}))
	require.NoError(t, ep.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{ItemID: "A"}))
	require.NoError(t, ep.PublishItemAdded(ctx, &models.ItemAddedEvent{Item: models.Item{ID: "B"}}))
	require.NoError(t, ep.PublishCustomerAdded(ctx, &models.CustomerAddedEvent{Customer: models.Customer{ID: "c1"}}))

	keys := make([]string, len(w.events))
	for i, e := range w.events {
		keys[i] = e.key
	}
	assert.Equal(t, []string{"transaction-12", "item-A", "item-B", "customer-c1"}, keys)
}

func restockMessage(t *testing.T, itemID string, quantity int) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.RestockRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeRestockRequested, Timestamp: time.Now()},
		ItemID:    itemID,
		Quantity:  quantity,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("item-" + itemID), Value: value}
}

func TestEventHandlerRoutesRestock(t *testing.T) {
	eh := NewEventHandler()

	var got *models.RestockRequestedEvent
	eh.OnRestockRequested(func(ctx context.Context, event *models.RestockRequestedEvent) error {
		got = event
		return nil
	})

	require.NoError(t, eh.HandleMessage(context.Background(), restockMessage(t, "A", 40)))
	require.NotNil(t, got)
	assert.Equal(t, "A", got.ItemID)
	assert.Equal(t, 40, got.Quantity)
	assert.Nil(t, got.ExpectedPrevious)
}

func TestEventHandlerPropagatesHandlerError(t *testing.T) {
	eh := NewEventHandler()
	eh.OnRestockRequested(func(ctx context.Context, event *models.RestockRequestedEvent) error {
		return errors.New("rejected")
	})

	assert.Error(t, eh.HandleMessage(context.Background(), restockMessage(t, "A", 1)))
}

func TestEventHandlerIgnoresOtherEvents(t *testing.T) {
	eh := NewEventHandler()
	eh.OnRestockRequested(func(ctx context.Context, event *models.RestockRequestedEvent) error {
		t.Fatal("restock handler must not be called")
		return nil
	})

	value := []byte(`{"event_id":"e","event_type":"SALE_COMPLETED"}`)
	assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
}

func TestEventHandlerRejectsMalformedMessage(t *testing.T) {
	eh := NewEventHandler()
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")}))
}
