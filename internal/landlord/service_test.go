package landlord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
	"github.com/odyssey-erp/odyssey-rentals/internal/workflow"
)

type fixture struct {
	svc   *Service
	repo  *memoryRepo
	props *fakeProperties
	cache *countingCache
}

func newFixture(today string) *fixture {
	repo := newMemoryRepo()
	props := newFakeProperties(1, 2)
	cache := &countingCache{}
	svc := NewService(ServiceConfig{
		Repository: repo,
		Properties: props,
		Cache:      cache,
		Clock:      shared.FixedClock(date(today).Time),
		Logger:     quietLogger(),
	})
	svc.newID = func() uuid.UUID { return uuid.MustParse("0a1b2c3d-0000-4000-8000-000000000000") }
	return &fixture{svc: svc, repo: repo, props: props, cache: cache}
}

func monthly(propertyID int64, start, end, amount string) ContractInput {
	return ContractInput{
		PropertyID:       propertyID,
		RentalAmount:     dec(amount),
		PaymentFrequency: billing.Monthly,
		StartDate:        date(start),
		EndDate:          date(end),
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	return verr.Fields()
}

func TestSaveCreatesLandlordAndSchedules(t *testing.T) {
	f := newFixture("2024-06-15")
	res, err := f.svc.Save(context.Background(), 0, Input{
		LegalName: "Acme Holdings",
		Email:     "owner@acme.test",
		Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")},
	})
	require.NoError(t, err)

	l := res.Landlord
	require.Equal(t, "LL-0A1B2C3D", l.Code)
	require.Equal(t, string(workflow.StateDraft), l.WorkflowState)
	require.Len(t, l.Contracts, 1)
	require.Equal(t, ContractActive, l.Contracts[0].Status)
	require.True(t, dec("1000").Equal(l.Contracts[0].CurrentRent))

	rows := f.repo.forProperty(1)
	require.Len(t, rows, 12)
	require.Equal(t, ScheduleOverdue, rows[0].Status)
	require.Equal(t, SchedulePending, rows[11].Status)
	require.Equal(t, property.OccupancyOccupied, f.props.occupancy[1])
	require.Equal(t, 1, f.cache.bumps)
	require.NotEmpty(t, res.Notices)
}

func TestSaveDerivesExpiredAndVacant(t *testing.T) {
	f := newFixture("2025-03-01")
	res, err := f.svc.Save(context.Background(), 0, Input{
		LegalName: "Old Lease Ltd",
		Contracts: []ContractInput{monthly(2, "2023-01-01", "2023-12-31", "500")},
	})
	require.NoError(t, err)
	require.Equal(t, ContractExpired, res.Landlord.Contracts[0].Status)
	require.Equal(t, property.OccupancyVacant, f.props.occupancy[2])
}

func TestSaveCurrentRentEscalates(t *testing.T) {
	f := newFixture("2025-02-10")
	in := monthly(1, "2024-01-01", "2026-12-31", "1000")
	in.EscalationPercent = dec("5")
	in.EscalationFrequency = billing.Annually
	res, err := f.svc.Save(context.Background(), 0, Input{LegalName: "Escalator", Contracts: []ContractInput{in}})
	require.NoError(t, err)
	require.True(t, dec("1050").Equal(res.Landlord.Contracts[0].CurrentRent))

	rows := f.repo.forProperty(1)
	require.True(t, dec("1000").Equal(rows[11].Amount))
	require.True(t, dec("1050").Equal(rows[12].Amount))
}

func TestSaveRejectsOverlapInPayload(t *testing.T) {
	f := newFixture("2024-06-15")
	_, err := f.svc.Save(context.Background(), 0, Input{
		LegalName: "Twice Booked",
		Contracts: []ContractInput{
			monthly(1, "2024-01-01", "2024-06-30", "1000"),
			monthly(1, "2024-06-30", "2024-12-31", "1000"),
		},
	})
	require.Contains(t, fieldsOf(t, err), "contracts[1].start_date")
	require.Empty(t, f.repo.landlords)
}

func TestSaveAcceptsAdjoiningContracts(t *testing.T) {
	f := newFixture("2024-06-15")
	_, err := f.svc.Save(context.Background(), 0, Input{
		LegalName: "Back To Back",
		Contracts: []ContractInput{
			monthly(1, "2024-01-01", "2024-06-30", "1000"),
			monthly(1, "2024-07-01", "2024-12-31", "1100"),
		},
	})
	require.NoError(t, err)
	require.Len(t, f.repo.forProperty(1), 12)
}

func TestSaveRejectsOverlapWithOtherLandlord(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	_, err := f.svc.Save(ctx, 0, Input{LegalName: "First", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, 0, Input{LegalName: "Second", Contracts: []ContractInput{monthly(1, "2024-12-31", "2025-12-31", "1000")}})
	require.Contains(t, fieldsOf(t, err), "contracts[0].start_date")

	_, err = f.svc.Save(ctx, 0, Input{LegalName: "Second", Contracts: []ContractInput{monthly(1, "2025-01-01", "2025-12-31", "1000")}})
	require.NoError(t, err)
}

func TestSaveValidatesContracts(t *testing.T) {
	f := newFixture("2024-06-15")
	bad := monthly(9, "2024-06-01", "2024-06-01", "0")
	bad.EscalationPercent = dec("3")
	_, err := f.svc.Save(context.Background(), 0, Input{Contracts: []ContractInput{bad}})
	fields := fieldsOf(t, err)
	require.Contains(t, fields, "legal_name")
	require.Contains(t, fields, "contracts[0].property_id")
	require.Contains(t, fields, "contracts[0].end_date")
	require.Contains(t, fields, "contracts[0].rental_amount")
	require.Contains(t, fields, "contracts[0].escalation_frequency")
}

func TestUpdateRegeneratesAndKeepsPaidRows(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)

	first := f.repo.forProperty(1)[0]
	_, err = f.repo.MarkPaid(ctx, first.ID, date("2024-01-05").Time, "TRX-1")
	require.NoError(t, err)

	in := monthly(1, "2024-01-01", "2024-12-31", "1200")
	in.ID = res.Landlord.Contracts[0].ID
	_, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme", Contracts: []ContractInput{in}})
	require.NoError(t, err)

	rows := f.repo.forProperty(1)
	require.Len(t, rows, 12)
	require.Equal(t, SchedulePaid, rows[0].Status)
	require.True(t, dec("1000").Equal(rows[0].Amount))
	require.True(t, dec("1200").Equal(rows[1].Amount))
}

func dueDates(rows []PaymentSchedule) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DueDate.Format("2006-01-02")+"/"+string(r.Status))
	}
	return out
}

func TestFrequencyChangeKeepsPaidPeriodsAndFillsTheRest(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)
	for _, row := range f.repo.forProperty(1)[:3] {
		_, err = f.repo.MarkPaid(ctx, row.ID, row.DueDate.Time, "")
		require.NoError(t, err)
	}

	in := monthly(1, "2024-01-01", "2024-12-31", "3000")
	in.ID = res.Landlord.Contracts[0].ID
	in.PaymentFrequency = billing.Quarterly
	_, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme", Contracts: []ContractInput{in}})
	require.NoError(t, err)

	require.Equal(t, []string{
		"2024-01-01/Paid", "2024-02-01/Paid", "2024-03-01/Paid",
		"2024-04-01/Overdue", "2024-07-01/Pending", "2024-10-01/Pending",
	}, dueDates(f.repo.forProperty(1)))
}

func TestPaidQuarterCoversMonthsAfterSwitchToMonthly(t *testing.T) {
	f := newFixture("2024-01-15")
	ctx := context.Background()
	quarterly := monthly(1, "2024-01-01", "2024-12-31", "3000")
	quarterly.PaymentFrequency = billing.Quarterly
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{quarterly}})
	require.NoError(t, err)
	first := f.repo.forProperty(1)[0]
	_, err = f.repo.MarkPaid(ctx, first.ID, first.DueDate.Time, "")
	require.NoError(t, err)

	in := monthly(1, "2024-01-01", "2024-12-31", "1000")
	in.ID = res.Landlord.Contracts[0].ID
	_, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme", Contracts: []ContractInput{in}})
	require.NoError(t, err)

	rows := f.repo.forProperty(1)
	require.Len(t, rows, 10)
	require.Equal(t, "2024-01-01/Paid", dueDates(rows)[0])
	require.Equal(t, "2024-04-01/Pending", dueDates(rows)[1])
	require.Equal(t, "2024-12-01/Pending", dueDates(rows)[9])
}

func TestUpdateWithoutChangesSkipsRegeneration(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)

	f.repo.replaceErr = errors.New("should not be called")
	in := monthly(1, "2024-01-01", "2024-12-31", "1000")
	in.ID = res.Landlord.Contracts[0].ID
	res, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme Renamed", Contracts: []ContractInput{in}})
	require.NoError(t, err)
	require.Empty(t, res.Notices)
	require.Equal(t, "Acme Renamed", res.Landlord.LegalName)
}

func TestRemovingContractWithPaidRowsIsRejected(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)
	first := f.repo.forProperty(1)[0]
	_, err = f.repo.MarkPaid(ctx, first.ID, date("2024-01-05").Time, "")
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme"})
	require.Contains(t, fieldsOf(t, err), "contracts")
}

func TestRemovingContractFreesProperty(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(2, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)
	require.Equal(t, property.OccupancyOccupied, f.props.occupancy[2])

	_, err = f.svc.Save(ctx, res.Landlord.ID, Input{LegalName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, property.OccupancyVacant, f.props.occupancy[2])
	require.Empty(t, f.repo.forProperty(2))
}

func TestForeignContractIDRejected(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	other, err := f.svc.Save(ctx, 0, Input{LegalName: "Other", Contracts: []ContractInput{monthly(2, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)
	mine, err := f.svc.Save(ctx, 0, Input{LegalName: "Mine"})
	require.NoError(t, err)

	in := monthly(1, "2024-01-01", "2024-12-31", "1000")
	in.ID = other.Landlord.Contracts[0].ID
	_, err = f.svc.Save(ctx, mine.Landlord.ID, Input{LegalName: "Mine", Contracts: []ContractInput{in}})
	require.Contains(t, fieldsOf(t, err), "contracts[0].id")
}

func TestCascadeFailuresBecomeNotices(t *testing.T) {
	f := newFixture("2024-06-15")
	f.repo.replaceErr = errors.New("disk full")
	f.props.setErr = errors.New("locked")
	res, err := f.svc.Save(context.Background(), 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)
	require.Len(t, res.Notices, 2)
	for _, n := range res.Notices {
		require.Equal(t, shared.NoticeWarning, n.Kind)
	}
	require.NotZero(t, res.Landlord.ID)
}

func TestDetailLookups(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	res, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-01", "2024-12-31", "1000")}})
	require.NoError(t, err)

	d, err := f.svc.Detail(ctx, res.Landlord.ID)
	require.NoError(t, err)
	require.Equal(t, 12, d.Totals.Count)
	require.True(t, dec("6000").Equal(d.Totals.Overdue))
	require.True(t, dec("6000").Equal(d.Totals.Pending))
	require.Equal(t, date("2024-01-01"), d.Totals.NextDue)

	pd, err := f.svc.PropertyDetail(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pd.Contracts, 1)
	require.Len(t, pd.Schedules, 12)

	_, err = f.svc.Detail(ctx, 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegenerateSchedulesIsStable(t *testing.T) {
	f := newFixture("2024-06-15")
	ctx := context.Background()
	_, err := f.svc.Save(ctx, 0, Input{LegalName: "Acme", Contracts: []ContractInput{monthly(1, "2024-01-31", "2024-12-31", "1000")}})
	require.NoError(t, err)

	n, err := f.svc.RegenerateSchedules(ctx, 1, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 12, n)
	rows := f.repo.forProperty(1)
	require.Equal(t, date("2024-02-29"), rows[1].DueDate)
	require.Equal(t, date("2024-03-31"), rows[2].DueDate)
}
