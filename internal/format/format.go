// Package format renders prices, dates and counts for display.
package format

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/shopspring/decimal"
)

const DateLayout = "Jan 2, 2006"

type Formatter struct {
	now        func() time.Time
	dateLayout string
}

type Option func(*Formatter)

// WithClock replaces time.Now as the reference for relative times.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

func WithDateLayout(layout string) Option {
	return func(f *Formatter) { f.dateLayout = layout }
}

func New(opts ...Option) *Formatter {
	f := &Formatter{now: time.Now, dateLayout: DateLayout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Money renders d with two fixed decimals and comma thousands separators,
// e.g. 1234.5 -> "1,234.50".
func Money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	whole := decimal.RequireFromString(intPart).BigInt()
	return sign + humanize.BigComma(whole) + "." + frac
}

// Percent renders a percentage without trailing zeros, e.g. "20%" or "33.33%".
func Percent(d decimal.Decimal) string {
	return d.String() + "%"
}

func (f *Formatter) Money(d decimal.Decimal) string {
	return Money(d)
}

func (f *Formatter) Percent(d decimal.Decimal) string {
	return Percent(d)
}

func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(f.dateLayout)
}

// RelativeTime describes t against the formatter clock, e.g. "3 minutes ago".
func (f *Formatter) RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, f.now(), "ago", "from now")
}

// Pluralize prefixes the counted noun with n, e.g. "1 item", "3 items".
func (f *Formatter) Pluralize(n int, singular string) string {
	return english.Plural(n, singular, "")
}
