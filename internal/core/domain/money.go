package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Money values are fixed-point int64 quantities in the smallest unit of
// their asset. Conversions between precisions use integer scaling by powers
// of ten only; floating point never touches an amount.

// CurrencyDecimals returns the minor-unit precision of a fiat currency.
func CurrencyDecimals(currency string) int {
	switch strings.ToUpper(currency) {
	case "JPY", "KRW", "VND":
		return 0
	default:
		return 2
	}
}

// ParseAmount parses a decimal string like "19.99" into minor units at the
// given precision. More fractional digits than the precision allows is an
// error, not a rounding.
func ParseAmount(s string, decimals int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("amount %q exceeds %d decimal places", s, decimals)
	}
	// Right-pad the fraction to the full precision.
	frac += strings.Repeat("0", decimals-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	scale, err := pow10(decimals)
	if err != nil {
		return 0, err
	}
	if w > (1<<63-1-f)/scale {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return w*scale + f, nil
}

// FormatAmount renders minor units back to a decimal string.
func FormatAmount(v int64, decimals int) string {
	if decimals == 0 {
		return strconv.FormatInt(v, 10)
	}
	scale, _ := pow10(decimals)
	whole := v / scale
	frac := v % scale
	return fmt.Sprintf("%d.%0*d", whole, decimals, frac)
}

// ScaleAmount converts a fixed-point value between precisions. Scaling down
// fails on precision loss rather than rounding silently.
func ScaleAmount(v int64, fromDecimals, toDecimals int) (int64, error) {
	switch {
	case toDecimals == fromDecimals:
		return v, nil
	case toDecimals > fromDecimals:
		scale, err := pow10(toDecimals - fromDecimals)
		if err != nil {
			return 0, err
		}
		if v != 0 && v > (1<<63-1)/scale {
			return 0, fmt.Errorf("scaling %d by 10^%d overflows", v, toDecimals-fromDecimals)
		}
		return v * scale, nil
	default:
		scale, err := pow10(fromDecimals - toDecimals)
		if err != nil {
			return 0, err
		}
		if v%scale != 0 {
			return 0, fmt.Errorf("scaling %d down by 10^%d loses precision", v, fromDecimals-toDecimals)
		}
		return v / scale, nil
	}
}

func pow10(n int) (int64, error) {
	if n < 0 || n > 18 {
		return 0, fmt.Errorf("unsupported decimal precision %d", n)
	}
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p, nil
}
