package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/billing"
	"github.com/odyssey-erp/odyssey-rentals/internal/landlord"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

const sampleMarker = "sample-data"

// PropertyCreator creates properties.
type PropertyCreator interface {
	Create(ctx context.Context, in property.Input) (property.Property, error)
}

// LandlordSaver saves landlords with their contracts.
type LandlordSaver interface {
	Save(ctx context.Context, id int64, in landlord.Input) (landlord.SaveResult, error)
}

// SampleSeeder creates one property and a landlord with a yearly contract
// starting on the first of the current month, through the regular services.
type SampleSeeder struct {
	Store      Store
	Properties PropertyCreator
	Landlords  LandlordSaver
	Clock      shared.Clock
}

// Seed implements Seeder.
func (s SampleSeeder) Seed(ctx context.Context) (bool, error) {
	done, err := s.Store.Exists(ctx, KindMarker, sampleMarker)
	if err != nil {
		return false, fmt.Errorf("setup: check sample data: %w", err)
	}
	if done {
		return false, nil
	}
	clock := s.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	today := clock.Today()
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	lat, long := -1.2864, 36.8172
	prop, err := s.Properties.Create(ctx, property.Input{
		Name:      "Sample Rooftop Site",
		Address:   "Kenyatta Avenue",
		City:      "Nairobi",
		Latitude:  &lat,
		Longitude: &long,
		Type:      property.TypeBillboardSite,
		SizeSqm:   decimal.NewFromInt(48),
	})
	if err != nil {
		return false, fmt.Errorf("setup: sample property: %w", err)
	}
	saved, err := s.Landlords.Save(ctx, 0, landlord.Input{
		LegalName: "Sample Holdings Ltd",
		Email:     "accounts@sample-holdings.example",
		Contracts: []landlord.ContractInput{{
			PropertyID:          prop.ID,
			RentalAmount:        decimal.NewFromInt(25000),
			PaymentFrequency:    billing.Monthly,
			StartDate:           shared.NewDate(start),
			EndDate:             shared.NewDate(shared.AddMonths(start, 12).AddDate(0, 0, -1)),
			EscalationPercent:   decimal.NewFromInt(5),
			EscalationFrequency: billing.Annually,
		}},
	})
	if err != nil {
		return false, fmt.Errorf("setup: sample landlord: %w", err)
	}
	raw, err := json.Marshal(map[string]any{"property_id": prop.ID, "landlord_id": saved.Landlord.ID})
	if err != nil {
		return false, err
	}
	if err := s.Store.Insert(ctx, Record{Kind: KindMarker, Name: sampleMarker, Definition: raw}); err != nil {
		return false, fmt.Errorf("setup: mark sample data: %w", err)
	}
	return true, nil
}
