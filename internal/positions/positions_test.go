package positions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

var valuation = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

const powergrid = `
POWERGRID 24-Feb-26 250   PE -57000 0.60
POWERGRID 24-Feb-26 252.5 PE 19000  0.75

powergrid 24-Feb-26 255   pe -57000 0.80
`

func TestParse_Rows(t *testing.T) {
	book, err := Parse(powergrid, valuation)
	require.NoError(t, err)

	rows := book.Rows()
	require.Len(t, rows, 3)

	assert.Equal(t, "POWERGRID", rows[2].Symbol)
	assert.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), rows[0].Expiry)
	assert.Equal(t, models.Leg{Strike: 252.5, Type: models.Put, Quantity: 19000, Premium: 0.75}, rows[1].Leg)
	assert.Equal(t, 34200.0, rows[0].Value)
	assert.Equal(t, -14250.0, rows[1].Value)

	legs := book.Legs()
	require.Len(t, legs, 3)
	assert.Equal(t, models.Put, legs[2].Type)
}

func TestBook_TotalValue(t *testing.T) {
	book, err := Parse(powergrid, valuation)
	require.NoError(t, err)

	// 34200 - 14250 + 45600
	assert.Equal(t, 65550.0, book.TotalValue())
}

func TestBook_UnderlyingAndExpiry(t *testing.T) {
	book, err := Parse(powergrid, valuation)
	require.NoError(t, err)

	symbol, err := book.Underlying()
	require.NoError(t, err)
	assert.Equal(t, "POWERGRID", symbol)

	expiry, err := book.Expiry()
	require.NoError(t, err)
	assert.Equal(t, 24, expiry.Day())

	mixed, err := Parse("ITC 24-Feb-26 263.5 PE -19200 0.7\nNIFTY 26-Feb-26 24000 CE 75 120", valuation)
	require.NoError(t, err)

	_, err = mixed.Underlying()
	assert.True(t, errors.Is(err, errors.ErrMixedUnderlyings))
	_, err = mixed.Expiry()
	assert.True(t, errors.Is(err, errors.ErrMixedExpiries))
}

func TestParse_IgnoresTrailingColumns(t *testing.T) {
	book, err := Parse("ITC 24-Feb-26 263.5 PE -19200 0.7 NRML 13440.00", valuation)
	require.NoError(t, err)

	rows := book.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, models.Leg{Strike: 263.5, Type: models.Put, Quantity: -19200, Premium: 0.7}, rows[0].Leg)
	assert.Equal(t, 13440.0, rows[0].Value)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind error
	}{
		{"empty", "   \n  ", errors.ErrEmptyInput},
		{"too few fields", "ITC 24-Feb-26 263.5 PE -19200", errors.ErrInvalidRow},
		{"futures not supported", "ITC 24-Feb-26 263.5 FUT -19200 0.7", errors.ErrInvalidRow},
		{"bad strike", "ITC 24-Feb-26 abc PE -19200 0.7", errors.ErrInvalidRow},
		{"fractional quantity", "ITC 24-Feb-26 263.5 PE 1.5 0.7", errors.ErrInvalidRow},
		{"zero quantity", "ITC 24-Feb-26 263.5 PE 0 0.7", errors.ErrInvalidRow},
		{"negative strike", "ITC 24-Feb-26 -263.5 PE 10 0.7", errors.ErrInvalidRow},
		{"bad expiry", "ITC 2026-02-24 263.5 PE 10 0.7", errors.ErrInvalidRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := Parse(tt.raw, valuation)
			assert.Nil(t, book)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestParse_RowErrorCarriesLine(t *testing.T) {
	_, err := Parse("ITC 24-Feb-26 263.5 PE -19200 0.7\n\nITC 24-Feb-26 263.5 XX -19200 0.7", valuation)
	require.Error(t, err)

	var rowErr *errors.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 3, rowErr.Line)
	assert.Contains(t, rowErr.Error(), "XX")
}

func TestParseExpiry(t *testing.T) {
	got, err := ParseExpiry("24-Feb", valuation)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseExpiry("3-Mar-27", valuation)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 3, 3, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseExpiry("24/02/2026", valuation)
	assert.Error(t, err)
}
