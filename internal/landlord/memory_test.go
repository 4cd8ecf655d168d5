package landlord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

type memoryRepo struct {
	nextLandlord  int64
	nextContract  int64
	nextSchedule  int64
	landlords     map[int64]Landlord
	contracts     map[int64]Contract
	schedules     map[int64]PaymentSchedule
	replaceErr    error
	remindedAt    map[int64]time.Time
	candidatesFor func(today, until time.Time) []Reminder
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		landlords:  map[int64]Landlord{},
		contracts:  map[int64]Contract{},
		schedules:  map[int64]PaymentSchedule{},
		remindedAt: map[int64]time.Time{},
	}
}

func (m *memoryRepo) GetLandlord(ctx context.Context, id int64) (Landlord, error) {
	l, ok := m.landlords[id]
	if !ok {
		return Landlord{}, shared.ErrNotFound
	}
	l.Contracts = nil
	for _, c := range m.sortedContracts() {
		if c.LandlordID == id {
			l.Contracts = append(l.Contracts, c)
		}
	}
	return l, nil
}

func (m *memoryRepo) SaveLandlord(ctx context.Context, l Landlord, removed []int64) (Landlord, error) {
	if l.ID == 0 {
		m.nextLandlord++
		l.ID = m.nextLandlord
	}
	for _, id := range removed {
		delete(m.contracts, id)
		for sid, s := range m.schedules {
			if s.ContractID == id {
				delete(m.schedules, sid)
			}
		}
	}
	saved := l
	saved.Contracts = nil
	for _, c := range l.Contracts {
		if c.ID == 0 {
			m.nextContract++
			c.ID = m.nextContract
		}
		c.LandlordID = l.ID
		m.contracts[c.ID] = c
		saved.Contracts = append(saved.Contracts, c)
	}
	header := saved
	header.Contracts = nil
	m.landlords[l.ID] = header
	return saved, nil
}

func (m *memoryRepo) sortedContracts() []Contract {
	out := make([]Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepo) ContractsForProperty(ctx context.Context, propertyID int64) ([]Contract, error) {
	var out []Contract
	for _, c := range m.sortedContracts() {
		if c.PropertyID == propertyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) CountPaid(ctx context.Context, contractID int64) (int, error) {
	n := 0
	for _, s := range m.schedules {
		if s.ContractID == contractID && s.Status == SchedulePaid {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) ReplaceUnpaidSchedules(ctx context.Context, propertyID int64, rows []PaymentSchedule) (int, error) {
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}
	var paid []PaymentSchedule
	for id, s := range m.schedules {
		if s.PropertyID != propertyID {
			continue
		}
		if s.Status == SchedulePaid {
			paid = append(paid, s)
			continue
		}
		delete(m.schedules, id)
	}
	n := 0
	for _, s := range uncovered(rows, paid) {
		m.nextSchedule++
		s.ID = m.nextSchedule
		m.schedules[s.ID] = s
		n++
	}
	return n, nil
}

func (m *memoryRepo) Totals(ctx context.Context, f ScheduleFilter) (ScheduleTotals, error) {
	var t ScheduleTotals
	for _, s := range m.sortedSchedules() {
		if (f.PropertyID > 0 && s.PropertyID != f.PropertyID) || (f.PropertyID == 0 && s.LandlordID != f.LandlordID) {
			continue
		}
		t.Count++
		switch s.Status {
		case SchedulePending:
			t.Pending = t.Pending.Add(s.Amount)
		case ScheduleOverdue:
			t.Overdue = t.Overdue.Add(s.Amount)
		case SchedulePaid:
			t.Paid = t.Paid.Add(s.Amount)
		}
		if s.Status != SchedulePaid && (t.NextDue.IsZero() || s.DueDate.Before(t.NextDue.Time)) {
			t.NextDue = s.DueDate
		}
	}
	return t, nil
}

func (m *memoryRepo) sortedSchedules() []PaymentSchedule {
	out := make([]PaymentSchedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memoryRepo) forProperty(propertyID int64) []PaymentSchedule {
	var out []PaymentSchedule
	for _, s := range m.sortedSchedules() {
		if s.PropertyID == propertyID {
			out = append(out, s)
		}
	}
	return out
}

func (m *memoryRepo) UpcomingSchedules(ctx context.Context, propertyID int64, limit int) ([]PaymentSchedule, error) {
	var out []PaymentSchedule
	for _, s := range m.forProperty(propertyID) {
		if s.Status != SchedulePaid && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetSchedule(ctx context.Context, id int64) (PaymentSchedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return PaymentSchedule{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) MarkPaid(ctx context.Context, id int64, paidOn time.Time, reference string) (PaymentSchedule, error) {
	s := m.schedules[id]
	s.Status = SchedulePaid
	s.PaidOn = shared.NewDate(paidOn)
	s.PaymentReference = reference
	m.schedules[id] = s
	return s, nil
}

func (m *memoryRepo) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	n := 0
	for id, s := range m.schedules {
		if s.Status == SchedulePending && s.DueDate.Before(today) {
			s.Status = ScheduleOverdue
			m.schedules[id] = s
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) ReminderCandidates(ctx context.Context, today, until time.Time) ([]Reminder, error) {
	if m.candidatesFor != nil {
		return m.candidatesFor(today, until), nil
	}
	var out []Reminder
	for _, s := range m.sortedSchedules() {
		due := s.Status == ScheduleOverdue || (s.Status == SchedulePending && !s.DueDate.After(until))
		if at, ok := m.remindedAt[s.ID]; ok && !at.Before(today) {
			due = false
		}
		if due {
			l := m.landlords[s.LandlordID]
			out = append(out, Reminder{ScheduleID: s.ID, DueDate: s.DueDate.Time, Amount: s.Amount, Status: s.Status,
				LandlordName: l.LegalName, Email: l.Email, PropertyName: "Site"})
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	m.remindedAt[id] = at
	return nil
}

type fakeProperties struct {
	items     map[int64]property.Property
	occupancy map[int64]property.Occupancy
	setErr    error
}

func newFakeProperties(ids ...int64) *fakeProperties {
	f := &fakeProperties{items: map[int64]property.Property{}, occupancy: map[int64]property.Occupancy{}}
	for _, id := range ids {
		f.items[id] = property.Property{ID: id, Name: "Site", Occupancy: property.OccupancyVacant}
	}
	return f
}

func (f *fakeProperties) Get(ctx context.Context, id int64) (property.Property, error) {
	p, ok := f.items[id]
	if !ok {
		return property.Property{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeProperties) SetOccupancy(ctx context.Context, id int64, status property.Occupancy) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.occupancy[id] = status
	return nil
}

type fakeQueue struct {
	sent    []notify.Message
	failFor string
}

func (q *fakeQueue) EnqueueMail(ctx context.Context, msg notify.Message) error {
	if q.failFor != "" && msg.To == q.failFor {
		return errors.New("redis unavailable")
	}
	q.sent = append(q.sent, msg)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(s string) shared.Date {
	t, err := shared.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return shared.NewDate(t)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
