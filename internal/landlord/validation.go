package landlord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// checkHeader validates the landlord's own fields.
func checkHeader(in Input, v *shared.ValidationError) {
	if strings.TrimSpace(in.LegalName) == "" {
		v.Add("legal_name", "is required")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		v.Add("email", "must be a valid email")
	}
}

// checkContract validates one contract row, prefixing field names with its
// position in the payload.
func checkContract(idx int, c Contract, v *shared.ValidationError) {
	prefix := fmt.Sprintf("contracts[%d].", idx)
	if c.PropertyID <= 0 {
		v.Add(prefix+"property_id", "is required")
	}
	err := c.Plan().Validate()
	var planErr *shared.ValidationError
	if errors.As(err, &planErr) {
		for field, msg := range planErr.Fields() {
			v.Add(prefix+field, msg)
		}
	}
}

// checkOverlaps rejects contracts on the same property whose inclusive
// ranges share a day, both within the payload and against stored contracts
// of other landlords. Adjoining ranges are fine.
func checkOverlaps(ctx context.Context, repo Repository, landlordID int64, contracts []Contract, v *shared.ValidationError) error {
	for i := range contracts {
		for j := i + 1; j < len(contracts); j++ {
			a, b := contracts[i], contracts[j]
			if a.PropertyID == b.PropertyID && datesSet(a) && datesSet(b) && overlaps(a, b) {
				v.Add(fmt.Sprintf("contracts[%d].start_date", j),
					fmt.Sprintf("overlaps contract row %d for the same property", i))
			}
		}
	}

	stored := map[int64][]Contract{}
	for i, c := range contracts {
		if c.PropertyID <= 0 || !datesSet(c) {
			continue
		}
		others, ok := stored[c.PropertyID]
		if !ok {
			existing, err := repo.ContractsForProperty(ctx, c.PropertyID)
			if err != nil {
				return fmt.Errorf("landlord: load contracts for property %d: %w", c.PropertyID, err)
			}
			for _, e := range existing {
				if landlordID == 0 || e.LandlordID != landlordID {
					others = append(others, e)
				}
			}
			stored[c.PropertyID] = others
		}
		for _, o := range others {
			if overlaps(c, o) {
				v.Add(fmt.Sprintf("contracts[%d].start_date", i), fmt.Sprintf(
					"overlaps contract %d (%s to %s) for the same property", o.ID,
					o.StartDate.Format(shared.DateLayout), o.EndDate.Format(shared.DateLayout)))
				break
			}
		}
	}
	return nil
}

func overlaps(a, b Contract) bool {
	return billing.Overlaps(a.StartDate.Time, a.EndDate.Time, b.StartDate.Time, b.EndDate.Time)
}

func datesSet(c Contract) bool {
	return !c.StartDate.IsZero() && !c.EndDate.IsZero()
}

// derive fills the status and current rent of a valid contract.
func derive(c Contract, today time.Time) Contract {
	c.Status = statusOn(c, today)
	c.CurrentRent = c.Plan().CurrentRent(today)
	return c
}
