package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCompleted    = "SALE_COMPLETED"
	EventTypeStockAdjusted    = "STOCK_ADJUSTED"
	EventTypeItemAdded        = "ITEM_ADDED"
	EventTypeCustomerAdded    = "CUSTOMER_ADDED"
	EventTypeRestockRequested = "RESTOCK_REQUESTED"
)

// Reasons carried by StockAdjustedEvent
const (
	StockReasonSale       = "sale"
	StockReasonAdjustment = "adjustment"
	StockReasonRestock    = "restock"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCompletedEvent published when a transaction is recorded
type SaleCompletedEvent struct {
	BaseEvent
	TransactionID int64           `json:"transaction_id"`
	CustomerID    string          `json:"customer_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Lines         []SaleLine      `json:"lines"`
}

// StockAdjustedEvent published whenever an item's quantity on hand changes
type StockAdjustedEvent struct {
	BaseEvent
	ItemID   string `json:"item_id"`
	Previous int    `json:"previous"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// ItemAddedEvent published when a catalog entry is created
type ItemAddedEvent struct {
	BaseEvent
	Item Item `json:"item"`
}

// CustomerAddedEvent published when a customer is registered
type CustomerAddedEvent struct {
	BaseEvent
	Customer Customer `json:"customer"`
}

// RestockRequestedEvent is consumed from the inventory tool; Quantity is the
// new quantity on hand, not a delta. When ExpectedPrevious is set the request
// only applies if stock still holds that quantity.
type RestockRequestedEvent struct {
	BaseEvent
	ItemID           string `json:"item_id"`
	Quantity         int    `json:"quantity"`
	ExpectedPrevious *int   `json:"expected_previous,omitempty"`
}
