package worker

import (
	"context"
	"errors"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// Restocker applies a new quantity on hand to an item
type Restocker interface {
	Restock(ctx context.Context, itemID string, quantity int) error
	RestockFrom(ctx context.Context, itemID string, expected, quantity int) error
}

// RestockWorker applies restock requests coming from the inventory tool
type RestockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	restocker    Restocker
	logger       *zap.Logger
}

// NewRestockWorker creates a new restock worker
func NewRestockWorker(consumer *broker.Consumer, restocker Restocker) *RestockWorker {
	w := &RestockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		restocker:    restocker,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnRestockRequested(w.HandleRestockRequested)
	return w
}

// Start starts the worker
func (w *RestockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting restock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RestockWorker) Stop() error {
	w.logger.Info("Stopping restock worker")
	return w.consumer.Close()
}

// HandleRestockRequested applies one request. Requests for unknown items,
// negative quantities or stale expected quantities can never succeed, so they
// are logged and dropped.
func (w *RestockWorker) HandleRestockRequested(ctx context.Context, event *models.RestockRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "RestockWorker.HandleRestockRequested")
	defer span.End()

	var err error
	if event.ExpectedPrevious != nil {
		err = w.restocker.RestockFrom(ctx, event.ItemID, *event.ExpectedPrevious, event.Quantity)
	} else {
		err = w.restocker.Restock(ctx, event.ItemID, event.Quantity)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrStockChanged):
		w.logger.Warn("Dropping restock request",
			zap.String("event_id", event.EventID),
			zap.String("item_id", event.ItemID),
			zap.Int("quantity", event.Quantity),
			zap.Error(err))
		return nil
	default:
		return err
	}
}
