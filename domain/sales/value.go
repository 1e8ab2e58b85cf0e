package sales

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind tags the payload carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindDate
	KindText
)

// Value is a typed, nullable cell. The zero value is null.
type Value struct {
	Kind   ValueKind
	Number decimal.Decimal
	Date   time.Time
	Text   string
}

// NullValue returns the null cell value.
func NullValue() Value {
	return Value{Kind: KindNull}
}

// NumberValue wraps a fixed-precision decimal.
func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Number: d}
}

// DateValue wraps a calendar date. The time component is ignored downstream.
func DateValue(t time.Time) Value {
	return Value{Kind: KindDate, Date: t}
}

// TextValue wraps a text cell.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// IsNull reports whether the cell carries no value.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String returns the canonical string form used for filter matching,
// dedup keys and catalog samples: dates as YYYY-MM-DD, numbers in
// decimal notation, text verbatim, null as empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Number.String()
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// MarshalJSON renders nulls as JSON null, numbers as JSON numbers,
// dates as YYYY-MM-DD strings and text as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(v.Number.String()), nil
	case KindDate:
		return json.Marshal(v.Date.Format("2006-01-02"))
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}
