// Package coercer parses raw cell strings into typed values: calendar
// dates (ISO, day-first, Excel serial) and fixed-precision decimals from
// currency-formatted numbers. Unparseable cells become null; callers
// count the failures instead of aborting the load.
package coercer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"alphabot/domain/sales"
)

// Config defines the coercion thresholds and rules
type Config struct {
	// DateRatio is the share of sampled values that must parse as a
	// textual date for a column to be typed date.
	DateRatio float64
	// NumberRatio is the share of sampled values that must parse as a
	// number for a column to be typed number.
	NumberRatio float64
	// SerialMin and SerialMax bound the plausible Excel serial range.
	// 25569 is 1970-01-01; 60000 is around 2064.
	SerialMin float64
	SerialMax float64
	// SampleSize caps how many non-empty values type inference reads.
	SampleSize int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DateRatio:   0.6,
		NumberRatio: 0.8,
		SerialMin:   20000,
		SerialMax:   80000,
		SampleSize:  200,
	}
}

// Coercer converts raw strings to typed values under one config.
type Coercer struct {
	cfg Config
}

// New creates a coercer with the given config.
func New(cfg Config) *Coercer {
	return &Coercer{cfg: cfg}
}

// Config returns the active parse thresholds.
func (c *Coercer) Config() Config {
	return c.cfg
}

// Excel serials count days since 1899-12-30. The epoch is shifted two
// days so that serial 60, the phantom 1900-02-29 of the Lotus leap-year
// bug, keeps every later serial aligned with real dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dayFirstLayouts = []string{"2/1/2006", "2-1-2006"}

// ParseDate tries ISO 8601, then day-first, then Excel serial, in that
// order. The first success wins.
func (c *Coercer) ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return c.parseSerialDate(s)
}

// parseTextualDate is ParseDate without the serial fallback, used by
// type inference so that plain numeric columns in the serial range are
// not mistaken for dates.
func (c *Coercer) parseTextualDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (c *Coercer) parseSerialDate(s string) (time.Time, bool) {
	serial, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	f, _ := serial.Float64()
	if f < c.cfg.SerialMin || f > c.cfg.SerialMax {
		return time.Time{}, false
	}
	days := serial.IntPart()
	frac, _ := serial.Sub(decimal.NewFromInt(days)).Float64()
	t := excelEpoch.AddDate(0, 0, int(days))
	if frac > 0 {
		t = t.Add(time.Duration(frac * 24 * float64(time.Hour)))
	}
	return t, true
}

// ParseNumber parses a currency or plain number string into a decimal.
// Currency symbols, percent signs, NBSP and spaces are stripped first.
// With both "," and "." present, the rightmost one is the decimal
// separator and the other marks thousands. With a single separator kind,
// it is decimal only when it occurs once and is followed by exactly two
// digits at end-of-string; otherwise it marks thousands.
func (c *Coercer) ParseNumber(s string) (decimal.Decimal, bool) {
	cleaned := stripNonNumeric(s)
	if cleaned == "" || cleaned == "-" || cleaned == "." || cleaned == "," {
		return decimal.Decimal{}, false
	}

	commaIdx := strings.LastIndex(cleaned, ",")
	dotIdx := strings.LastIndex(cleaned, ".")

	switch {
	case commaIdx >= 0 && dotIdx >= 0:
		if commaIdx > dotIdx {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case commaIdx >= 0:
		cleaned = resolveSingleSeparator(cleaned, ",")
	case dotIdx >= 0:
		cleaned = resolveSingleSeparator(cleaned, ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// resolveSingleSeparator decides decimal vs thousands for a number that
// contains only one separator kind.
func resolveSingleSeparator(s, sep string) string {
	tail := s[strings.LastIndex(s, sep)+1:]
	if strings.Count(s, sep) == 1 && len(tail) == 2 {
		return strings.ReplaceAll(s, sep, ".")
	}
	return strings.ReplaceAll(s, sep, "")
}

// stripNonNumeric keeps digits, sign and separators, discarding currency
// symbols, percent signs, NBSP and whitespace.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// InferType classifies a column from a sample of its raw values using
// textual dates first, then numbers, defaulting to text. Empty values do
// not count against either ratio.
func (c *Coercer) InferType(samples []string) sales.ColumnType {
	total := 0
	dates := 0
	numbers := 0
	for _, s := range samples {
		if total >= c.cfg.SampleSize {
			break
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		total++
		if _, ok := c.parseTextualDate(s); ok {
			dates++
		}
		if _, ok := c.ParseNumber(s); ok {
			numbers++
		}
	}
	if total == 0 {
		return sales.TypeText
	}
	if float64(dates)/float64(total) >= c.cfg.DateRatio {
		return sales.TypeDate
	}
	if float64(numbers)/float64(total) >= c.cfg.NumberRatio {
		return sales.TypeNumber
	}
	return sales.TypeText
}

// DateRatio reports the share of non-empty samples that parse as dates
// including the Excel serial fallback. The ingest builder uses it to
// force the canonical date column onto the date type when the sheet
// stores serials.
func (c *Coercer) DateRatio(samples []string) float64 {
	total := 0
	dates := 0
	for _, s := range samples {
		if total >= c.cfg.SampleSize {
			break
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		total++
		if _, ok := c.ParseDate(s); ok {
			dates++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(dates) / float64(total)
}

// Coerce converts one raw cell under a column type. Empty cells are null
// without counting as failures; non-empty cells that fail to parse
// return ok=false so the caller can count them.
func (c *Coercer) Coerce(raw string, t sales.ColumnType) (sales.Value, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return sales.NullValue(), true
	}
	switch t {
	case sales.TypeDate:
		if d, ok := c.ParseDate(trimmed); ok {
			return sales.DateValue(d), true
		}
		return sales.NullValue(), false
	case sales.TypeNumber:
		if n, ok := c.ParseNumber(trimmed); ok {
			return sales.NumberValue(n), true
		}
		return sales.NullValue(), false
	default:
		return sales.TextValue(trimmed), true
	}
}
