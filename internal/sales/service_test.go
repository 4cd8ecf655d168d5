package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
)

type memoryRepo struct {
	orders     []Order
	invoices   []Invoice
	invoiceErr error
	// missFind makes FindOrder miss, as when another caller inserts the
	// order between the lookup and the insert.
	missFind bool
}

func (m *memoryRepo) FindOrder(ctx context.Context, customer, project string) (Order, error) {
	if m.missFind {
		return Order{}, ErrNotFound
	}
	return m.findOrder(customer, project)
}

func (m *memoryRepo) findOrder(customer, project string) (Order, error) {
	for _, o := range m.orders {
		if o.Customer == customer && o.Project == project {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (m *memoryRepo) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if existing, err := m.findOrder(o.Customer, o.Project); err == nil {
		return existing, nil
	}
	o.ID = int64(len(m.orders) + 1)
	o.Number = docNumber("SO", o.OrderDate.Year(), o.ID)
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *memoryRepo) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if m.invoiceErr != nil {
		return Invoice{}, m.invoiceErr
	}
	inv.ID = int64(len(m.invoices) + 1)
	inv.Number = docNumber("SINV", inv.PostingDate.Year(), inv.ID)
	m.invoices = append(m.invoices, inv)
	for i := range m.orders {
		if m.orders[i].ID == inv.OrderID {
			m.orders[i].Total = m.orders[i].Total.Add(inv.Amount)
		}
	}
	return inv, nil
}

func (m *memoryRepo) InvoiceForSchedule(ctx context.Context, scheduleID int64) (Invoice, Order, error) {
	for _, inv := range m.invoices {
		if inv.ScheduleID != scheduleID {
			continue
		}
		for _, o := range m.orders {
			if o.ID == inv.OrderID {
				return inv, o, nil
			}
		}
	}
	return Invoice{}, Order{}, ErrNotFound
}

func (m *memoryRepo) MarkInvoicePaid(ctx context.Context, id int64) error {
	for i := range m.invoices {
		if m.invoices[i].ID == id {
			m.invoices[i].Status = InvoicePaid
			return nil
		}
	}
	return ErrNotFound
}

func newTestService() (*Service, *memoryRepo) {
	repo := &memoryRepo{}
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func request(customer, project string, amount int64) InvoiceRequest {
	return InvoiceRequest{
		Customer:    customer,
		Project:     project,
		ScheduleID:  7,
		PostingDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(amount),
	}
}

func TestInvoiceReusesProjectOrder(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	inv, order, err := svc.Invoice(ctx, request("Safaricom", "Billboard Q2", 1000))
	require.NoError(t, err)
	require.Equal(t, "SO-2024-00001", order.Number)
	require.Equal(t, "SINV-2024-00001", inv.Number)
	require.Equal(t, order.ID, inv.OrderID)
	require.Equal(t, InvoiceUnpaid, inv.Status)

	second := request("Safaricom", "Billboard Q2", 500)
	second.ScheduleID = 8
	_, again, err := svc.Invoice(ctx, second)
	require.NoError(t, err)
	require.Equal(t, order.ID, again.ID)
	require.Len(t, repo.orders, 1)
	require.True(t, decimal.NewFromInt(1500).Equal(repo.orders[0].Total))

	third := request("Safaricom", "Mall Screens", 500)
	third.ScheduleID = 9
	_, other, err := svc.Invoice(ctx, third)
	require.NoError(t, err)
	require.NotEqual(t, order.ID, other.ID)
}

func TestInvoiceReturnsExistingScheduleInvoice(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, order, err := svc.Invoice(ctx, request("Safaricom", "Billboard Q2", 1000))
	require.NoError(t, err)

	again, againOrder, err := svc.Invoice(ctx, request("Safaricom", "Billboard Q2", 1000))
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, order.ID, againOrder.ID)
	require.Len(t, repo.invoices, 1)
	require.True(t, decimal.NewFromInt(1000).Equal(repo.orders[0].Total))
}

func TestInvoiceSharesOrderCreatedConcurrently(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	_, order, err := svc.Invoice(ctx, request("Safaricom", "Billboard Q2", 1000))
	require.NoError(t, err)

	repo.missFind = true
	second := request("Safaricom", "Billboard Q2", 500)
	second.ScheduleID = 8
	inv, again, err := svc.Invoice(ctx, second)
	require.NoError(t, err)
	require.Equal(t, order.ID, again.ID)
	require.Equal(t, order.ID, inv.OrderID)
	require.Len(t, repo.orders, 1)
}

func TestInvoiceValidates(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.Invoice(context.Background(), request(" ", "", 0))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestInvoiceWrapsRepositoryErrors(t *testing.T) {
	svc, repo := newTestService()
	repo.invoiceErr = errors.New("connection reset")
	_, _, err := svc.Invoice(context.Background(), request("Acme", "P1", 10))
	require.ErrorContains(t, err, "sales: create invoice")
}

func TestMarkPaid(t *testing.T) {
	svc, repo := newTestService()
	inv, _, err := svc.Invoice(context.Background(), request("Acme", "P1", 10))
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(context.Background(), inv.ID))
	require.Equal(t, InvoicePaid, repo.invoices[0].Status)
	require.ErrorIs(t, svc.MarkPaid(context.Background(), 99), ErrNotFound)
}
