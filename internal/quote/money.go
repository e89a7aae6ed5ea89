package quote

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. All price arithmetic goes through it so that
// totals shown to customers never accumulate floating point drift.
type Money int64

const Zero Money = 0

// Cents builds a Money from a cent amount.
func Cents(c int64) Money { return Money(c) }

// Units builds a Money from whole currency units.
func Units(u int64) Money { return Money(u * 100) }

// ParseMoney parses "12", "12.5", "12.50" or "-3.20". More than two decimals is
// rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty value")
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("parse money: %q is not a number", s)
	}
	if hasDot && len(frac) > 2 {
		return 0, fmt.Errorf("parse money: %q has more than two decimals", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("parse money: %q is not a number", s)
	}

	var units int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse money: %w", err)
		}
		units = v
	}

	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)

	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money(total), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FromFloat converts a configuration float, rounding half away from zero to
// the nearest cent. Only used at input boundaries.
func FromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

func (m Money) Add(o Money) Money { return m + o }

func (m Money) Sub(o Money) Money { return m - o }

// Mul multiplies by an integer quantity.
func (m Money) Mul(q int) Money { return m * Money(q) }

func (m Money) IsZero() bool { return m == 0 }

func (m Money) Cents() int64 { return int64(m) }

// Float64 is for display adapters (spreadsheets) only.
func (m Money) Float64() float64 { return float64(m) / 100 }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = str
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// UnmarshalTOML accepts integers, floats and strings from the pricing file.
func (m *Money) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case int64:
		*m = Units(v)
	case float64:
		*m = FromFloat(v)
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
	default:
		return fmt.Errorf("money: unsupported TOML value %T", data)
	}
	return nil
}

// Scan reads NUMERIC columns, which lib/pq hands over as []byte.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case []byte:
		parsed, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = parsed
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
	case int64:
		*m = Units(v)
	case float64:
		*m = FromFloat(v)
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
