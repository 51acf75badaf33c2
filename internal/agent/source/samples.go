package source

import (
	"github.com/shopspring/decimal"

	"github.com/contract-guardian/server/internal/agent/model"
)

// Samples returns the built-in demo invoices in processing order.
func Samples() []model.Invoice {
	return []model.Invoice{
		{
			ID:       "INV-2024-001",
			Vendor:   "Tech Solutions Ltd",
			Date:     "2024-01-15",
			Item:     "Senior Engineering Services (10 days)",
			Amount:   decimal.RequireFromString("12000.00"),
			Currency: "USD",
			Status:   "Pending",
			Metadata: "Timesheet attached",
		},
		{
			ID:       "INV-2024-002",
			Vendor:   "Global Logistics Inc",
			Date:     "2024-01-20",
			Item:     "Travel Expenses",
			Amount:   decimal.RequireFromString("850.00"),
			Currency: "USD",
			Status:   "Pending",
			Metadata: "No pre-approval attached",
		},
	}
}
