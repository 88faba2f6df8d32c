package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Centavos is a peso amount at fixed scale 2, stored as an integer count
// of centavos. All balance and price arithmetic happens on this type so
// totals never drift the way float math does.
type Centavos int64

// ParsePesos converts a decimal string like "125.50" into centavos.
// More than two fractional digits is an error, not a rounding.
func ParsePesos(s string) (Centavos, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, "00"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if len(frac) > 2 {
			return 0, fmt.Errorf("amount %q has more than two decimal places", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	v := w*100 + f
	if neg {
		v = -v
	}
	return Centavos(v), nil
}

// String renders the amount as a plain decimal with two places, e.g. "40.00".
func (c Centavos) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (c Centavos) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Centavos) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate bare JSON numbers from older clients.
		var f json.Number
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("amount must be a decimal string")
		}
		s = f.String()
	}
	v, err := ParsePesos(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
