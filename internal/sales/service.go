package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// ErrNotFound indicates the order or invoice does not exist.
var ErrNotFound = errors.New("sales: not found")

// Repository is the persistence port for orders and invoices.
type Repository interface {
	// FindOrder returns the oldest order for the customer project.
	FindOrder(ctx context.Context, customer, project string) (Order, error)
	// CreateOrder inserts the order, or returns the existing one when a
	// concurrent caller created it for the same customer project first.
	CreateOrder(ctx context.Context, o Order) (Order, error)
	// InvoiceForSchedule returns the invoice already raised for a schedule row
	// together with its order.
	InvoiceForSchedule(ctx context.Context, scheduleID int64) (Invoice, Order, error)
	// CreateInvoice inserts the invoice and adds its amount to the order total.
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	MarkInvoicePaid(ctx context.Context, id int64) error
}

// Service raises sales documents.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Invoice finds or creates the customer project order and raises an invoice
// referencing it and the schedule row. A schedule row that already has an
// invoice gets that invoice back instead of a second one.
func (s *Service) Invoice(ctx context.Context, req InvoiceRequest) (Invoice, Order, error) {
	customer, project := strings.TrimSpace(req.Customer), strings.TrimSpace(req.Project)
	v := shared.NewValidationError()
	if customer == "" {
		v.Add("customer", "is required")
	}
	if project == "" {
		v.Add("project", "is required")
	}
	if !req.Amount.IsPositive() {
		v.Add("amount", "must be greater than zero")
	}
	if req.DueDate.IsZero() {
		v.Add("due_date", "is required")
	}
	if err := v.Err(); err != nil {
		return Invoice{}, Order{}, err
	}

	if req.ScheduleID != 0 {
		inv, order, err := s.repo.InvoiceForSchedule(ctx, req.ScheduleID)
		switch {
		case err == nil:
			s.logger.Info("sales invoice reused", slog.String("number", inv.Number), slog.Int64("schedule_id", req.ScheduleID))
			return inv, order, nil
		case !errors.Is(err, ErrNotFound):
			return Invoice{}, Order{}, fmt.Errorf("sales: lookup schedule invoice: %w", err)
		}
	}

	order, err := s.repo.FindOrder(ctx, customer, project)
	if errors.Is(err, ErrNotFound) {
		order, err = s.repo.CreateOrder(ctx, Order{
			Customer:  customer,
			Project:   project,
			OrderDate: shared.NewDate(req.PostingDate),
			Status:    OrderToBill,
		})
		if err == nil {
			s.logger.Info("sales order created", slog.String("number", order.Number), slog.String("project", project))
		}
	}
	if err != nil {
		return Invoice{}, Order{}, fmt.Errorf("sales: resolve order: %w", err)
	}

	inv, err := s.repo.CreateInvoice(ctx, Invoice{
		OrderID:     order.ID,
		Customer:    customer,
		Project:     project,
		ScheduleID:  req.ScheduleID,
		PostingDate: shared.NewDate(req.PostingDate),
		DueDate:     shared.NewDate(req.DueDate),
		Amount:      req.Amount.Round(2),
		Status:      InvoiceUnpaid,
	})
	if err != nil {
		return Invoice{}, Order{}, fmt.Errorf("sales: create invoice: %w", err)
	}
	return inv, order, nil
}

// MarkPaid settles an invoice.
func (s *Service) MarkPaid(ctx context.Context, invoiceID int64) error {
	if err := s.repo.MarkInvoicePaid(ctx, invoiceID); err != nil {
		return fmt.Errorf("sales: mark paid: %w", err)
	}
	return nil
}
