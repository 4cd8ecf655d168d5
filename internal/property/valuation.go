package property

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ratePerSqm is the indicative value per square metre used for estimates.
var ratePerSqm = map[Type]decimal.Decimal{
	TypeResidential:   decimal.NewFromInt(1500),
	TypeCommercial:    decimal.NewFromInt(2500),
	TypeIndustrial:    decimal.NewFromInt(1000),
	TypeLand:          decimal.NewFromInt(400),
	TypeBillboardSite: decimal.NewFromInt(3000),
}

var typeCodes = map[Type]string{
	TypeResidential:   "RES",
	TypeCommercial:    "COM",
	TypeIndustrial:    "IND",
	TypeLand:          "LND",
	TypeBillboardSite: "BBS",
}

// EstimateValue returns size × type rate, rounded to cents.
func EstimateValue(t Type, size decimal.Decimal) decimal.Decimal {
	rate, ok := ratePerSqm[t]
	if !ok || !size.IsPositive() {
		return decimal.Zero
	}
	return size.Mul(rate).Round(2)
}

// DeriveCode builds PROP-<TYPE>-<CITY>-<8 hex>, e.g. PROP-COM-NAI-1f3a9c0b.
func DeriveCode(t Type, city string, id uuid.UUID) string {
	city = strings.ToUpper(strings.TrimSpace(city))
	var letters []rune
	for _, r := range city {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
		if len(letters) == 3 {
			break
		}
	}
	cityCode := string(letters)
	if cityCode == "" {
		cityCode = "GEN"
	}
	code, ok := typeCodes[t]
	if !ok {
		code = "GEN"
	}
	return "PROP-" + code + "-" + cityCode + "-" + strings.ReplaceAll(id.String(), "-", "")[:8]
}
