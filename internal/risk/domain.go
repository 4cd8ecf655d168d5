// Package risk scores each property on payment arrears, vacancy and
// contract expiry, and keeps the assessment history.
package risk

import (
	"math"
	"time"

	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Level buckets a score.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Levels in ascending order.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh}

const (
	overdueWeight = 60
	vacantWeight  = 20
	expiryWeight  = 20

	mediumFrom = 34
	highFrom   = 67
)

// Factors are the observed inputs for one property on one day.
type Factors struct {
	DueSchedules     int        `json:"due_schedules"`
	OverdueSchedules int        `json:"overdue_schedules"`
	Vacant           bool       `json:"vacant"`
	NearestEnd       *time.Time `json:"-"`
}

// Assessment is one persisted score.
type Assessment struct {
	ID           int64       `json:"id"`
	PropertyID   int64       `json:"property_id"`
	PropertyName string      `json:"property_name,omitempty"`
	AssessedOn   shared.Date `json:"assessed_on"`
	OverdueRatio float64     `json:"overdue_ratio"`
	Vacant       bool        `json:"vacant"`
	DaysToExpiry *int        `json:"days_to_expiry"`
	Score        float64     `json:"score"`
	Level        Level       `json:"level"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Analytics summarises the latest assessment of every property.
type Analytics struct {
	Assessed     int           `json:"assessed"`
	Counts       map[Level]int `json:"counts"`
	AverageScore float64       `json:"average_score"`
	TopRisky     []Assessment  `json:"top_risky"`
}

// ExpiryFactor weights how soon the nearest active contract ends.
func ExpiryFactor(days *int) float64 {
	switch {
	case days == nil:
		return 0
	case *days <= 30:
		return 1
	case *days <= 90:
		return 0.5
	default:
		return 0
	}
}

// LevelFor buckets a score.
func LevelFor(score float64) Level {
	switch {
	case score >= highFrom:
		return LevelHigh
	case score >= mediumFrom:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Score computes the assessment for the given factors.
func Score(propertyID int64, f Factors, today time.Time) Assessment {
	a := Assessment{PropertyID: propertyID, AssessedOn: shared.NewDate(today), Vacant: f.Vacant}
	var ratio float64
	if f.DueSchedules > 0 {
		ratio = float64(f.OverdueSchedules) / float64(f.DueSchedules)
		a.OverdueRatio = round2(ratio)
	}
	if f.NearestEnd != nil {
		days := shared.DaysBetween(today, *f.NearestEnd)
		a.DaysToExpiry = &days
	}
	score := overdueWeight * ratio
	if f.Vacant {
		score += vacantWeight
	}
	score += expiryWeight * ExpiryFactor(a.DaysToExpiry)
	a.Score = round2(score)
	a.Level = LevelFor(a.Score)
	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
