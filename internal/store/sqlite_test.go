package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(id, symbol string, createdAt time.Time) *models.Report {
	expiry := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	return &models.Report{
		ID:            id,
		CreatedAt:     createdAt,
		ValuationDate: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC),
		Symbol:        symbol,
		Expiry:        expiry,
		Spot:          262.35,
		Volatility:    0.18,
		TimeToExpiry:  28.0 / 365.0,
		Rows: []models.Row{
			{Symbol: symbol, Expiry: expiry, Leg: models.Leg{Strike: 260, Type: models.Put, Quantity: -3200, Premium: 1.5}, Value: 4800},
			{Symbol: symbol, Expiry: expiry, Leg: models.Leg{Strike: 270, Type: models.Call, Quantity: -3200, Premium: 1.2}, Value: 3840},
		},
		TotalValue:          8640,
		Breakevens:          []float64{257.3, 272.7},
		ProbabilityOfProfit: 0.7134,
		Regions: []models.PriceRegion{
			{Low: 0, High: 257.3, Profit: false, Probability: 0.12},
			{Low: 257.3, High: 272.7, Profit: true, Probability: 0.7134},
			{Low: 272.7, High: 1e12, Profit: false, Probability: 0.1666},
		},
		MaxProfit:     8640,
		MaxLoss:       -823360,
		UnboundedLoss: true,
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := sampleReport("r-1", "ITC", time.Date(2026, 1, 27, 9, 30, 0, 0, time.UTC))
	want.Margin = &models.MarginSummary{InitialTotal: 152000.5, FinalTotal: 98000.25, SPAN: 120000, Exposure: 32000.5}
	require.NoError(t, s.SaveReport(ctx, want))

	got, err := s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r := sampleReport("r-1", "ITC", time.Date(2026, 1, 27, 9, 30, 0, 0, time.UTC))
	require.NoError(t, s.SaveReport(ctx, r))

	r.Spot = 265
	r.Margin = nil
	require.NoError(t, s.SaveReport(ctx, r))

	got, err := s.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, 265.0, got.Spot)
	assert.Nil(t, got.Margin)

	all, err := s.GetReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_GetReportsFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		symbol := "ITC"
		if i%2 == 1 {
			symbol = "NIFTY"
		}
		r := sampleReport(fmt.Sprintf("r-%d", i), symbol, base.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, s.SaveReport(ctx, r))
	}

	all, err := s.GetReports(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "r-5", all[0].ID, "newest first")
	assert.Equal(t, "r-0", all[5].ID)

	itc, err := s.GetReports(ctx, ReportFilter{Symbol: "itc"})
	require.NoError(t, err)
	require.Len(t, itc, 3)
	for _, r := range itc {
		assert.Equal(t, "ITC", r.Symbol)
	}

	limited, err := s.GetReports(ctx, ReportFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	window, err := s.GetReports(ctx, ReportFilter{
		StartDate: base.Add(24 * time.Hour),
		EndDate:   base.Add(3 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "r-3", window[0].ID)
	assert.Equal(t, "r-1", window[2].ID)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetReport(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))

	err = s.DeleteReport(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveReport(ctx, sampleReport("r-1", "ITC", time.Now().UTC().Truncate(time.Second))))
	require.NoError(t, s.DeleteReport(ctx, "r-1"))

	_, err := s.GetReport(ctx, "r-1")
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}
