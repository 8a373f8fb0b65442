package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter writes one keyed event to the broker
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	writer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(writer EventWriter) *EventPublisher {
	return &EventPublisher{writer: writer}
}

// PublishSaleCompleted publishes SaleCompleted event
func (ep *EventPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	return ep.writer.PublishEvent(ctx, "transaction-"+strconv.FormatInt(event.TransactionID, 10), event)
}

// PublishStockAdjusted publishes StockAdjusted event
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.writer.PublishEvent(ctx, "item-"+event.ItemID, event)
}

// PublishItemAdded publishes ItemAdded event
func (ep *EventPublisher) PublishItemAdded(ctx context.Context, event *models.ItemAddedEvent) error {
	return ep.writer.PublishEvent(ctx, "item-"+event.Item.ID, event)
}

// PublishCustomerAdded publishes CustomerAdded event
func (ep *EventPublisher) PublishCustomerAdded(ctx context.Context, event *models.CustomerAddedEvent) error {
	return ep.writer.PublishEvent(ctx, "customer-"+event.Customer.ID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onRestockRequested func(context.Context, *models.RestockRequestedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnRestockRequested registers a handler for RestockRequested events
func (eh *EventHandler) OnRestockRequested(handler func(context.Context, *models.RestockRequestedEvent) error) {
	eh.onRestockRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeRestockRequested:
		if eh.onRestockRequested != nil {
			var event models.RestockRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal RestockRequested event: %w", err)
			}
			return eh.onRestockRequested(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
