package provider

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

// ToMajor converts kobo to naira.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ToMinor converts a naira amount to kobo. Sub-kobo precision is rejected
// rather than rounded.
func ToMinor(major decimal.Decimal) (int64, error) {
	shifted := major.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("ToMinor: %s has sub-kobo precision: %w", major, domain.ErrValidation)
	}
	return shifted.IntPart(), nil
}

// wireAmount renders kobo as a bare JSON number in naira, e.g. 150050 -> 1500.50.
func wireAmount(minor int64) json.Number {
	return json.Number(ToMajor(minor).StringFixed(2))
}
