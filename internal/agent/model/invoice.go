package model

import "github.com/shopspring/decimal"

// Invoice is a single transaction record read from a source. It is treated as
// immutable once read.
type Invoice struct {
	ID       string          `json:"invoice_id"`
	Vendor   string          `json:"vendor"`
	Date     string          `json:"date,omitempty"`
	Item     string          `json:"line_items"`
	Amount   decimal.Decimal `json:"total_amount"`
	Currency string          `json:"currency,omitempty"`
	Status   string          `json:"status"`
	Metadata string          `json:"metadata"`
}

// AmountString renders the amount with two decimal places.
func (i Invoice) AmountString() string {
	return i.Amount.StringFixed(2)
}
