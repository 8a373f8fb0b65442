package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxRate is the flat sales tax applied to every transaction.
var TaxRate = decimal.New(10, -2)

// CartLine is one requested item and quantity.
type CartLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Cart is processed in slice order. Repeating an item id is the caller's
// responsibility; each occurrence is reserved independently.
type Cart []CartLine

// SkippedLine is a cart line that was dropped from the sale.
type SkippedLine struct {
	CartLine
	Reason error
}

// SaleResult is returned by ProcessSale. Transaction is nil when the sale
// failed with ErrEmptySale; Skipped still lists why every line was dropped.
type SaleResult struct {
	Transaction *models.Transaction
	Skipped     []SkippedLine
}

type stockChange struct {
	itemID   string
	previous int
	quantity int
}

// ProcessSale converts a cart into a transaction for the given customer.
//
// An unknown customer fails the whole sale before any stock is touched. Lines
// whose item is unknown or short on stock are skipped, and the remaining lines
// are reserved one by one in cart order. Reservations are final: a skipped
// later line never releases stock taken by an earlier one. If no line is
// accepted the sale fails with ErrEmptySale and no transaction is recorded.
func (l *Ledger) ProcessSale(ctx context.Context, customerID string, cart Cart) (*SaleResult, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.ProcessSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	l.mu.Lock()

	customer, ok := l.customers[customerID]
	if !ok {
		l.mu.Unlock()
		util.SalesFailedTotal.WithLabelValues("customer_not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}

	result := &SaleResult{}
	lines := make([]models.SaleLine, 0, len(cart))
	changes := make([]stockChange, 0, len(cart))

	for _, cl := range cart {
		item, err := l.availableItem(cl)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedLine{CartLine: cl, Reason: err})
			continue
		}

		previous := item.Quantity
		item.Quantity -= cl.Quantity
		changes = append(changes, stockChange{itemID: item.ID, previous: previous, quantity: item.Quantity})
		lines = append(lines, models.SaleLine{
			ItemID:   item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: cl.Quantity,
		})
	}

	if len(lines) == 0 {
		l.mu.Unlock()
		l.recordSkipped(customerID, result.Skipped)
		util.SalesFailedTotal.WithLabelValues("empty_sale").Inc()
		return result, ErrEmptySale
	}

	tx := newTransaction(int64(len(l.transactions)+1), customer, lines, l.now())
	l.transactions = append(l.transactions, tx)
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	l.recordSkipped(customerID, result.Skipped)
	util.SalesCompletedTotal.Inc()
	util.SaleAmount.Observe(tx.Total.InexactFloat64())
	l.logger.Info("Transaction completed",
		zap.Int64("transaction_id", tx.ID),
		zap.String("customer_id", customerID),
		zap.Int("lines", len(tx.Lines)),
		zap.String("total", tx.Total.StringFixed(2)))

	for _, c := range changes {
		util.StockAdjustmentsTotal.WithLabelValues(models.StockReasonSale).Inc()
		l.stockChanged(ctx, c.itemID, c.previous, c.quantity, models.StockReasonSale)
	}
	l.publishSaleCompleted(ctx, tx)

	out := tx.Clone()
	result.Transaction = &out
	return result, nil
}

// availableItem must be called with mu held.
func (l *Ledger) availableItem(cl CartLine) (*models.Item, error) {
	if cl.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, ok := l.items[cl.ItemID]
	if !ok {
		return nil, ErrNotFound
	}
	if item.Quantity < cl.Quantity {
		return nil, ErrInsufficientStock
	}
	return item, nil
}

func (l *Ledger) recordSkipped(customerID string, skipped []SkippedLine) {
	for _, s := range skipped {
		util.SaleLinesSkippedTotal.WithLabelValues(skipReasonLabel(s.Reason)).Inc()
		l.logger.Warn("Item is not available or quantity is insufficient",
			zap.String("customer_id", customerID),
			zap.String("item_id", s.ItemID),
			zap.Int("quantity", s.Quantity),
			zap.Error(s.Reason))
	}
}

func skipReasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "unknown"
	}
}

func (l *Ledger) publishSaleCompleted(ctx context.Context, tx models.Transaction) {
	if l.publisher == nil {
		return
	}
	event := &models.SaleCompletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeSaleCompleted),
		TransactionID: tx.ID,
		CustomerID:    tx.Customer.ID,
		Subtotal:      tx.Subtotal,
		Tax:           tx.Tax,
		Total:         tx.Total,
		Lines:         tx.Clone().Lines,
	}
	if err := l.publisher.PublishSaleCompleted(ctx, event); err != nil {
		l.logger.Error("Failed to publish SaleCompleted event",
			zap.Int64("transaction_id", tx.ID),
			zap.Error(err))
	}
}

// newTransaction computes subtotal, tax and total. Tax is rounded to cents so
// total == subtotal + tax holds exactly.
func newTransaction(id int64, customer models.Customer, lines []models.SaleLine, at time.Time) models.Transaction {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount())
	}
	tax := subtotal.Mul(TaxRate).Round(2)

	return models.Transaction{
		ID:        id,
		Customer:  customer,
		Lines:     lines,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		CreatedAt: at,
	}
}
