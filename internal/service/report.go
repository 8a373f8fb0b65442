package service

import (
	"fmt"
	"strings"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

const (
	dateLayout    = "2006-01-02 15:04:05"
	emptyReport   = "No transactions found."
	reportDivider = "----------------------------------------"
)

// ReportRow summarizes one transaction.
type ReportRow struct {
	TransactionID int64           `json:"transaction_id"`
	CustomerName  string          `json:"customer_name"`
	Timestamp     time.Time       `json:"timestamp"`
	Total         decimal.Decimal `json:"total"`
}

// Report is a sales summary in chronological order.
type Report struct {
	Rows []ReportRow `json:"rows"`
}

// Empty reports whether there were no transactions to summarize.
func (r Report) Empty() bool {
	return len(r.Rows) == 0
}

func (r Report) String() string {
	if r.Empty() {
		return emptyReport
	}

	var b strings.Builder
	b.WriteString("Sales Report\n")
	b.WriteString(reportDivider + "\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "Transaction ID: %d\n", row.TransactionID)
		fmt.Fprintf(&b, "Customer: %s\n", row.CustomerName)
		fmt.Fprintf(&b, "Date: %s\n", row.Timestamp.Format(dateLayout))
		fmt.Fprintf(&b, "Total: $%s\n", row.Total.StringFixed(2))
		b.WriteString(reportDivider + "\n")
	}
	return b.String()
}

// SalesReport summarizes every recorded transaction.
func (l *Ledger) SalesReport() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]ReportRow, 0, len(l.transactions))
	for _, tx := range l.transactions {
		rows = append(rows, ReportRow{
			TransactionID: tx.ID,
			CustomerName:  tx.Customer.Name,
			Timestamp:     tx.CreatedAt,
			Total:         tx.Total,
		})
	}
	return Report{Rows: rows}
}

// Receipt formats a transaction for printing.
func Receipt(tx models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt for Transaction ID: %d\n", tx.ID)
	fmt.Fprintf(&b, "Customer: %s | %s\n", tx.Customer.Name, tx.Customer.Email)
	fmt.Fprintf(&b, "Date: %s\n", tx.CreatedAt.Format(dateLayout))
	b.WriteString(reportDivider + "\n")
	for _, line := range tx.Lines {
		fmt.Fprintf(&b, "%s (x%d) - $%s\n", line.Name, line.Quantity, line.Amount().StringFixed(2))
	}
	b.WriteString(reportDivider + "\n")
	fmt.Fprintf(&b, "Subtotal: $%s\n", tx.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax (%s%%): $%s\n", TaxRate.Shift(2).String(), tx.Tax.StringFixed(2))
	fmt.Fprintf(&b, "Total: $%s\n", tx.Total.StringFixed(2))
	b.WriteString(reportDivider + "\n")
	return b.String()
}
