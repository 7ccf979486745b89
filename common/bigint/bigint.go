package bigint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	ErrOverflow = errors.New("arithmetic overflow: value exceeds 256 bits")
	ErrNegative = errors.New("negative amount")
)

// Fits256 reports whether the magnitude of x can be held by a 256-bit word.
// A nil value is treated as zero.
func Fits256(x *big.Int) bool {
	return x == nil || x.BitLen() <= 256
}

func toUint256(x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 {
		return nil, errors.Wrapf(ErrNegative, "value %s", x)
	}
	u, overflow := uint256.FromBig(x)
	if overflow {
		return nil, ErrOverflow
	}
	return u, nil
}

// CheckedAdd adds two non-negative amounts, failing instead of wrapping at 2^256.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	x, err := toUint256(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint256(b)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// CheckedMul multiplies two non-negative amounts, failing instead of wrapping at 2^256.
func CheckedMul(a, b *big.Int) (*big.Int, error) {
	x, err := toUint256(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint256(b)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// FormatUnits renders an integer amount of the smallest unit as a decimal
// string with the given number of decimals, e.g. FormatUnits(1e15, 18) == "0.001".
// The output always carries at least one fractional digit.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		v = new(big.Int)
	}
	digits := new(big.Int).Abs(v).String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		whole := digits[:len(digits)-decimals]
		frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
		if frac == "" {
			frac = "0"
		}
		digits = whole + "." + frac
	}
	if v.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

// ParseUnits is the inverse of FormatUnits for non-negative amounts.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("invalid amount %q", s)
			}
		}
	}
	out, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return out, nil
}
