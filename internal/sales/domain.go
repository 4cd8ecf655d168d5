// Package sales holds the customer-facing sales orders and invoices that the
// invoicing schedule bills into.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// OrderStatus enumerates sales order states.
type OrderStatus string

const (
	OrderToBill    OrderStatus = "To Bill"
	OrderCompleted OrderStatus = "Completed"
)

// InvoiceStatus enumerates sales invoice states.
type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "Unpaid"
	InvoicePaid   InvoiceStatus = "Paid"
)

// Order groups the invoices of one customer project.
type Order struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Customer  string          `json:"customer"`
	Project   string          `json:"project"`
	OrderDate shared.Date     `json:"order_date"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Invoice bills one customer invoicing schedule row.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	OrderID     int64           `json:"sales_order_id"`
	Customer    string          `json:"customer"`
	Project     string          `json:"project"`
	ScheduleID  int64           `json:"schedule_id"`
	PostingDate shared.Date     `json:"posting_date"`
	DueDate     shared.Date     `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	Status      InvoiceStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InvoiceRequest describes an invoice to raise against a schedule row.
type InvoiceRequest struct {
	Customer    string
	Project     string
	ScheduleID  int64
	PostingDate time.Time
	DueDate     time.Time
	Amount      decimal.Decimal
}
