package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/service"

	"github.com/stretchr/testify/assert"
)

type fakeRestocker struct {
	calls    map[string]int
	expected map[string]int
	err      error
}

func (f *fakeRestocker) Restock(ctx context.Context, itemID string, quantity int) error {
	if f.err != nil {
		return f.err
	}
	f.calls[itemID] = quantity
	return nil
}

func (f *fakeRestocker) RestockFrom(ctx context.Context, itemID string, expected, quantity int) error {
	if f.err != nil {
		return f.err
	}
	f.expected[itemID] = expected
	f.calls[itemID] = quantity
	return nil
}

func restockEvent(itemID string, quantity int) *models.RestockRequestedEvent {
	return &models.RestockRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt", EventType: models.EventTypeRestockRequested},
		ItemID:    itemID,
		Quantity:  quantity,
	}
}

func TestHandleRestockRequested(t *testing.T) {
	r := &fakeRestocker{calls: map[string]int{}}
	w := NewRestockWorker(nil, r)

	assert.NoError(t, w.HandleRestockRequested(context.Background(), restockEvent("A", 12)))
	assert.Equal(t, map[string]int{"A": 12}, r.calls)
}

func TestHandleRestockRequestedDropsPermanentFailures(t *testing.T) {
	for _, sentinel := range []error{service.ErrNotFound, service.ErrInvalidQuantity, service.ErrStockChanged} {
		r := &fakeRestocker{err: fmt.Errorf("item %q: %w", "A", sentinel)}
		w := NewRestockWorker(nil, r)

		assert.NoError(t, w.HandleRestockRequested(context.Background(), restockEvent("A", -1)))
	}
}

func TestHandleRestockRequestedReturnsOtherErrors(t *testing.T) {
	r := &fakeRestocker{err: errors.New("unexpected")}
	w := NewRestockWorker(nil, r)

	assert.Error(t, w.HandleRestockRequested(context.Background(), restockEvent("A", 3)))
}

func TestHandleRestockRequestedWithExpectedPrevious(t *testing.T) {
	r := &fakeRestocker{calls: map[string]int{}, expected: map[string]int{}}
	w := NewRestockWorker(nil, r)

	event := restockEvent("A", 12)
	previous := 4
	event.ExpectedPrevious = &previous

	assert.NoError(t, w.HandleRestockRequested(context.Background(), event))
	assert.Equal(t, map[string]int{"A": 4}, r.expected)
	assert.Equal(t, map[string]int{"A": 12}, r.calls)
}
