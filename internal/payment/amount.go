package payment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a positive monetary value in canonical two-fraction-digit
// form. It can only be built through ParseAmount, so any Amount held by
// the service is already validated and normalized.
type Amount struct {
	canonical string
}

// ParseAmount validates raw as a finite positive number and rounds it
// to exactly two fraction digits. Rounding happens here, once, before
// the gateway ever sees the value; the gateway is amount-string
// sensitive.
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("amount %q is not numeric", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}, fmt.Errorf("amount %q is not finite", raw)
	}
	if v <= 0 {
		return Amount{}, fmt.Errorf("amount %q is not positive", raw)
	}
	canonical := strconv.FormatFloat(v, 'f', 2, 64)
	if canonical == "0.00" {
		// Sub-cent inputs round to a zero wire amount; the canonical
		// form must stay positive.
		return Amount{}, fmt.Errorf("amount %q rounds to zero", raw)
	}
	return Amount{canonical: canonical}, nil
}

// String returns the canonical wire form, e.g. "20.00".
func (a Amount) String() string { return a.canonical }
