// Package positions parses pasted option position books.
//
// Rows are headerless and whitespace separated:
//
//	SYMBOL EXPIRY STRIKE CE|PE QTY PRICE
//	ITC 24-Feb-26 263.5 PE -19200 0.7
package positions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

var fieldSep = regexp.MustCompile(`\s+`)

// Book is a parsed, validated set of position rows.
type Book struct {
	rows []models.Row
}

// Parse parses raw position text. The valuation date supplies the year for
// expiries written without one.
func Parse(raw string, valuation time.Time) (*Book, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.ErrEmptyInput
	}

	book := &Book{}
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row, err := parseRow(line, valuation)
		if err != nil {
			return nil, &errors.RowError{Line: i + 1, Text: line, Reason: err.Error()}
		}
		book.rows = append(book.rows, row)
	}
	return book, nil
}

func parseRow(line string, valuation time.Time) (models.Row, error) {
	parts := fieldSep.Split(line, -1)
	if len(parts) < 6 {
		return models.Row{}, fmt.Errorf("expected at least 6 fields, got %d", len(parts))
	}

	expiry, err := ParseExpiry(parts[1], valuation)
	if err != nil {
		return models.Row{}, err
	}
	strike, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return models.Row{}, fmt.Errorf("strike %q is not a number", parts[2])
	}
	optType, err := models.ParseOptionType(parts[3])
	if err != nil {
		return models.Row{}, err
	}
	qty, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return models.Row{}, fmt.Errorf("quantity %q is not an integer", parts[4])
	}
	price, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return models.Row{}, fmt.Errorf("price %q is not a number", parts[5])
	}

	leg, err := models.NewLeg(strike, optType, qty, price)
	if err != nil {
		return models.Row{}, err
	}

	return models.Row{
		Symbol: strings.ToUpper(parts[0]),
		Expiry: expiry,
		Leg:    leg,
		Value:  rowValue(qty, parts[5]),
	}, nil
}

// rowValue is the trade-time cash flow, computed in decimal from the price
// text so that totals do not accumulate binary rounding error.
func rowValue(qty int64, price string) float64 {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return 0
	}
	return p.Mul(decimal.NewFromInt(-qty)).InexactFloat64()
}

// ParseExpiry accepts "24-Feb-26" and "24-Feb". A missing year is taken from
// the valuation date.
func ParseExpiry(s string, valuation time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.Count(s, "-") {
	case 2:
		t, err := time.Parse("2-Jan-06", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("expiry %q: want DD-Mon-YY", s)
		}
		return t, nil
	case 1:
		t, err := time.Parse("2-Jan", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("expiry %q: want DD-Mon", s)
		}
		return time.Date(valuation.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("expiry %q: want DD-Mon-YY or DD-Mon", s)
}

// Rows returns the parsed rows in input order.
func (b *Book) Rows() []models.Row {
	return b.rows
}

// Legs returns the legs of all rows in input order.
func (b *Book) Legs() models.Position {
	legs := make(models.Position, len(b.rows))
	for i, r := range b.rows {
		legs[i] = r.Leg
	}
	return legs
}

// TotalValue sums the trade-time cash flow of all rows. Credits are positive.
func (b *Book) TotalValue() float64 {
	total := decimal.Zero
	for _, r := range b.rows {
		total = total.Add(decimal.NewFromFloat(r.Value))
	}
	return total.InexactFloat64()
}

// Underlying returns the single symbol all rows refer to.
func (b *Book) Underlying() (string, error) {
	if len(b.rows) == 0 {
		return "", errors.ErrEmptyInput
	}
	symbol := b.rows[0].Symbol
	for _, r := range b.rows[1:] {
		if r.Symbol != symbol {
			return "", errors.Wrapf(errors.ErrMixedUnderlyings, "%s and %s", symbol, r.Symbol)
		}
	}
	return symbol, nil
}

// Expiry returns the single expiry all rows share.
func (b *Book) Expiry() (time.Time, error) {
	if len(b.rows) == 0 {
		return time.Time{}, errors.ErrEmptyInput
	}
	expiry := b.rows[0].Expiry
	for _, r := range b.rows[1:] {
		if !r.Expiry.Equal(expiry) {
			return time.Time{}, errors.Wrapf(errors.ErrMixedExpiries, "%s and %s",
				expiry.Format("02-Jan-2006"), r.Expiry.Format("02-Jan-2006"))
		}
	}
	return expiry, nil
}
