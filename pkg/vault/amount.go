package vault

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// AtomicDecimals is the number of decimal places between the displayed unit
// and the atomic unit (wei).
const AtomicDecimals = 18

// maxWholeDigits bounds the integral part of a parsed amount. Anything wider
// cannot correspond to a real balance and is treated as overflow.
const maxWholeDigits = 18

var atomicScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(AtomicDecimals), nil)

// DurationUnit names a human duration unit for lock extensions.
type DurationUnit string

const (
	UnitSeconds DurationUnit = "seconds"
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
)

var durationFactors = map[DurationUnit]int64{
	UnitSeconds: 1,
	UnitMinutes: 60,
	UnitHours:   3600,
	UnitDays:    86400,
}

// NewDurationUnit validates and normalizes a duration unit name.
func NewDurationUnit(raw string) (DurationUnit, error) {
	unit := DurationUnit(strings.ToLower(strings.TrimSpace(raw)))
	if _, known := durationFactors[unit]; !known {
		return "", fmt.Errorf("%w: %q", ErrInvalidDurationUnit, raw)
	}
	return unit, nil
}

// ToAtomic parses a positive decimal amount in the displayed unit into its
// atomic representation. At most AtomicDecimals fractional digits are
// representable; anything finer fails rather than rounding silently.
func ToAtomic(raw string) (AtomicAmount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AtomicAmount{}, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "+") {
		return AtomicAmount{}, fmt.Errorf("%w: signed value %q", ErrInvalidAmount, raw)
	}
	wholePart := trimmed
	fracPart := ""
	if dot := strings.IndexByte(trimmed, '.'); dot >= 0 {
		wholePart = trimmed[:dot]
		fracPart = trimmed[dot+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return AtomicAmount{}, fmt.Errorf("%w: malformed decimal %q", ErrInvalidAmount, raw)
		}
	}
	if wholePart == "" && fracPart == "" {
		return AtomicAmount{}, fmt.Errorf("%w: malformed decimal %q", ErrInvalidAmount, raw)
	}
	if !isDigits(wholePart) || !isDigits(fracPart) {
		return AtomicAmount{}, fmt.Errorf("%w: not a decimal number %q", ErrInvalidAmount, raw)
	}
	if len(fracPart) > AtomicDecimals {
		return AtomicAmount{}, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalidAmount, AtomicDecimals, raw)
	}
	if len(strings.TrimLeft(wholePart, "0")) > maxWholeDigits {
		return AtomicAmount{}, fmt.Errorf("%w: value too large %q", ErrInvalidAmount, raw)
	}
	whole := new(big.Int)
	if wholePart != "" {
		if _, ok := whole.SetString(wholePart, 10); !ok {
			return AtomicAmount{}, fmt.Errorf("%w: not a decimal number %q", ErrInvalidAmount, raw)
		}
	}
	frac := new(big.Int)
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", AtomicDecimals-len(fracPart))
		if _, ok := frac.SetString(padded, 10); !ok {
			return AtomicAmount{}, fmt.Errorf("%w: not a decimal number %q", ErrInvalidAmount, raw)
		}
	}
	atomic := new(big.Int).Mul(whole, atomicScale)
	atomic.Add(atomic, frac)
	if atomic.Sign() == 0 {
		return AtomicAmount{}, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return AtomicAmount{value: atomic}, nil
}

// FromAtomic renders an atomic amount as a decimal string in the displayed
// unit. Trailing fractional zeros are trimmed; integral amounts render with
// no fractional part. FromAtomic(ToAtomic(x)) == x for canonical inputs.
func FromAtomic(amount AtomicAmount) string {
	value := amount.BigInt()
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(value, atomicScale, frac)
	if frac.Sign() == 0 {
		return whole.String()
	}
	fracDigits := frac.String()
	fracDigits = strings.Repeat("0", AtomicDecimals-len(fracDigits)) + fracDigits
	return whole.String() + "." + strings.TrimRight(fracDigits, "0")
}

// DurationSeconds converts a positive (value, unit) pair into whole seconds.
// Fractional values are accepted as long as the product is a whole positive
// number of seconds (1.5 hours is 5400, 1.5 seconds is rejected).
func DurationSeconds(value float64, unit DurationUnit) (int64, error) {
	factor, known := durationFactors[unit]
	if !known {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDurationUnit, unit)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: non-finite value", ErrInvalidDuration)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: value must be positive", ErrInvalidDuration)
	}
	seconds := value * float64(factor)
	if seconds != math.Trunc(seconds) {
		return 0, fmt.Errorf("%w: %g %s is not a whole number of seconds", ErrInvalidDuration, value, unit)
	}
	if seconds > math.MaxInt64 {
		return 0, fmt.Errorf("%w: value too large", ErrInvalidDuration)
	}
	return int64(seconds), nil
}

func isDigits(raw string) bool {
	for index := 0; index < len(raw); index++ {
		if raw[index] < '0' || raw[index] > '9' {
			return false
		}
	}
	return true
}
