package property

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates property classes.
type Type string

const (
	TypeResidential   Type = "Residential"
	TypeCommercial    Type = "Commercial"
	TypeIndustrial    Type = "Industrial"
	TypeLand          Type = "Land"
	TypeBillboardSite Type = "Billboard Site"
)

// Types lists the accepted property types.
var Types = []Type{TypeResidential, TypeCommercial, TypeIndustrial, TypeLand, TypeBillboardSite}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Occupancy tracks whether an active landlord contract covers the property.
type Occupancy string

const (
	OccupancyVacant   Occupancy = "Vacant"
	OccupancyOccupied Occupancy = "Occupied"
)

// Property is a rentable site.
type Property struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	Latitude       *float64        `json:"latitude,omitempty"`
	Longitude      *float64        `json:"longitude,omitempty"`
	Type           Type            `json:"property_type"`
	SizeSqm        decimal.Decimal `json:"size_sqm"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Occupancy      Occupancy       `json:"occupancy_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Input carries user-editable fields.
type Input struct {
	Code      string          `json:"code" validate:"omitempty,max=40"`
	Name      string          `json:"name" validate:"required,max=200"`
	Address   string          `json:"address" validate:"max=500"`
	City      string          `json:"city" validate:"max=100"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Type      Type            `json:"property_type" validate:"required"`
	SizeSqm   decimal.Decimal `json:"size_sqm"`
}

// ListFilter narrows property listings.
type ListFilter struct {
	Type      Type
	Occupancy Occupancy
	City      string
	Search    string
	Limit     int
	Offset    int
}
