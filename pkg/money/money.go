package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals is the precision of the settlement token (USDC).
	TokenDecimals int32 = 6
	// ShareDecimals is the precision of vault share tokens.
	ShareDecimals int32 = 18
)

var ErrTooPrecise = errors.New("money: amount has more fractional digits than the unit allows")

// Round6 rounds to the canonical six decimal places used for every monetary figure.
func Round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

// Finite reports whether x is neither NaN nor ±Inf.
func Finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// ToUnits converts a human decimal amount into smallest-unit integer form.
func ToUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("money: negative amount %s", amount.String())
	}
	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s (max %d)", ErrTooPrecise, amount.String(), decimals)
	}
	return scaled.BigInt(), nil
}

// ParseUnits is ToUnits for a decimal string such as "250.0".
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return ToUnits(d, decimals)
}

// FromUnits converts a smallest-unit integer back into a decimal amount.
func FromUnits(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -decimals)
}

// FormatUnits renders units as a decimal string with at least one fractional digit,
// matching the "250.0" shape stored for share balances.
func FormatUnits(units *big.Int, decimals int32) string {
	d := FromUnits(units, decimals)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(1)
	}
	return d.String()
}
