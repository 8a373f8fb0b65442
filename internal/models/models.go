package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a stocked product in the catalog
type Item struct {
	ID       string          `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Quantity int             `db:"quantity" json:"quantity"`
}

// Customer represents a registered buyer
type Customer struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Phone string `db:"phone" json:"phone"`
}

// SaleLine is a copy of an item's identity and price taken at sale time,
// together with the quantity sold.
type SaleLine struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Amount returns price * quantity for the line.
func (l SaleLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Transaction is a completed sale. It is never mutated after creation.
type Transaction struct {
	ID        int64           `json:"id"`
	Customer  Customer        `json:"customer"`
	Lines     []SaleLine      `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a copy that shares no mutable state with t.
func (t Transaction) Clone() Transaction {
	lines := make([]SaleLine, len(t.Lines))
	copy(lines, t.Lines)
	t.Lines = lines
	return t
}
