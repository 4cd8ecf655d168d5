// Package media tracks media installations on properties and the revenue
// each earns over its rental period.
package media

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// RateBasis is how an installation's rate is quoted.
type RateBasis string

const (
	PerDay   RateBasis = "Per Day"
	PerMonth RateBasis = "Per Month"
)

// RentalStatus is derived from the rental dates and today.
type RentalStatus string

const (
	StatusScheduled RentalStatus = "Scheduled"
	StatusActive    RentalStatus = "Active"
	StatusCompleted RentalStatus = "Completed"
)

// Installation is one rental history record.
type Installation struct {
	ID               int64           `json:"id"`
	InstallationCode string          `json:"installation_code"`
	PropertyID       int64           `json:"property_id"`
	Customer         string          `json:"customer"`
	Project          string          `json:"project"`
	MediaType        string          `json:"media_type"`
	StartDate        shared.Date     `json:"start_date"`
	EndDate          shared.Date     `json:"end_date"`
	Rate             decimal.Decimal `json:"rate"`
	RateBasis        RateBasis       `json:"rate_basis"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RentalStatus     RentalStatus    `json:"rental_status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Input is the editable part of an installation.
type Input struct {
	InstallationCode string          `json:"installation_code" validate:"max=40"`
	PropertyID       int64           `json:"property_id" validate:"required"`
	Customer         string          `json:"customer" validate:"required,max=200"`
	Project          string          `json:"project" validate:"max=200"`
	MediaType        string          `json:"media_type" validate:"max=80"`
	StartDate        shared.Date     `json:"start_date"`
	EndDate          shared.Date     `json:"end_date"`
	Rate             decimal.Decimal `json:"rate"`
	RateBasis        RateBasis       `json:"rate_basis" validate:"required"`
}
