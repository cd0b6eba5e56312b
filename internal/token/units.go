package token

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// DefaultDecimals is the number of fractional digits of the payment token.
const DefaultDecimals = 18

// DisplayPrecision is the number of fractional digits shown for balances.
const DisplayPrecision = 8

// ErrInexactAmount is returned when an amount has more fractional digits than the
// token supports.
var ErrInexactAmount = errors.New("amount does not scale to whole base units")

// decimalLiteral rejects the other forms big.Rat.SetString accepts, such as 0x10,
// 1_000, 1/3 and 1e3.
var decimalLiteral = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ToBaseUnits converts a decimal literal such as "5000" or "0.5" into the token's
// smallest unit, i.e. amount * 10^decimals, without any floating point step.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if !decimalLiteral.MatchString(amount) {
		if strings.HasPrefix(amount, "-") {
			return nil, fmt.Errorf("negative amount %q", amount)
		}
		return nil, fmt.Errorf("invalid amount %q", amount)
	}

	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(pow10(decimals)))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %s", ErrInexactAmount, amount)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatUnits renders raw base units as a decimal string with exactly precision
// fractional digits. The last digit is rounded half away from zero.
func FormatUnits(raw *big.Int, decimals uint8, precision int) string {
	if raw == nil {
		return ""
	}
	return new(big.Rat).SetFrac(raw, pow10(decimals)).FloatString(precision)
}
