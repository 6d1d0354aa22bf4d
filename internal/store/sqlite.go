package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

// SQLiteStore implements ReportStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the report database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		valuation_date DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		expiry DATETIME NOT NULL,
		spot REAL NOT NULL,
		volatility REAL NOT NULL,
		time_to_expiry REAL NOT NULL,
		total_value REAL NOT NULL,
		probability_of_profit REAL NOT NULL,
		max_profit REAL NOT NULL,
		max_loss REAL NOT NULL,
		unbounded_profit INTEGER DEFAULT 0,
		unbounded_loss INTEGER DEFAULT 0,
		position_rows TEXT NOT NULL,
		breakevens TEXT NOT NULL,
		regions TEXT,
		margin TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_symbol ON reports(symbol);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

const reportColumns = `id, created_at, valuation_date, symbol, expiry, spot, volatility,
	time_to_expiry, total_value, probability_of_profit, max_profit, max_loss,
	unbounded_profit, unbounded_loss, position_rows, breakevens, regions, margin`

// SaveReport inserts or replaces a report.
func (s *SQLiteStore) SaveReport(ctx context.Context, r *models.Report) error {
	rows, err := json.Marshal(r.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	breakevens, err := json.Marshal(r.Breakevens)
	if err != nil {
		return fmt.Errorf("failed to encode breakevens: %w", err)
	}
	regions, err := json.Marshal(r.Regions)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}
	var margin sql.NullString
	if r.Margin != nil {
		data, err := json.Marshal(r.Margin)
		if err != nil {
			return fmt.Errorf("failed to encode margin: %w", err)
		}
		margin = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CreatedAt.UTC(), r.ValuationDate.UTC(), r.Symbol, r.Expiry.UTC(), r.Spot, r.Volatility,
		r.TimeToExpiry, r.TotalValue, r.ProbabilityOfProfit, r.MaxProfit, r.MaxLoss,
		boolToInt(r.UnboundedProfit), boolToInt(r.UnboundedLoss),
		string(rows), string(breakevens), string(regions), margin)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReports returns reports matching the filter, newest first.
func (s *SQLiteStore) GetReports(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(filter.Symbol))
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// GetReport returns a single report by ID.
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrDataNotFound, "report %s", id)
	}
	return r, err
}

// DeleteReport removes a report by ID.
func (s *SQLiteStore) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrDataNotFound, "report %s", id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(sc scanner) (*models.Report, error) {
	var (
		r                       models.Report
		unboundedProfit         int
		unboundedLoss           int
		rowsJSON, breakevenJSON string
		regionsJSON, marginJSON sql.NullString
	)

	err := sc.Scan(&r.ID, &r.CreatedAt, &r.ValuationDate, &r.Symbol, &r.Expiry, &r.Spot, &r.Volatility,
		&r.TimeToExpiry, &r.TotalValue, &r.ProbabilityOfProfit, &r.MaxProfit, &r.MaxLoss,
		&unboundedProfit, &unboundedLoss, &rowsJSON, &breakevenJSON, &regionsJSON, &marginJSON)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	r.CreatedAt = r.CreatedAt.UTC()
	r.ValuationDate = r.ValuationDate.UTC()
	r.Expiry = r.Expiry.UTC()
	r.UnboundedProfit = unboundedProfit == 1
	r.UnboundedLoss = unboundedLoss == 1

	if err := json.Unmarshal([]byte(rowsJSON), &r.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows of report %s: %w", r.ID, err)
	}
	for i := range r.Rows {
		r.Rows[i].Expiry = r.Rows[i].Expiry.UTC()
	}
	if err := json.Unmarshal([]byte(breakevenJSON), &r.Breakevens); err != nil {
		return nil, fmt.Errorf("failed to decode breakevens of report %s: %w", r.ID, err)
	}
	if regionsJSON.Valid && regionsJSON.String != "" {
		if err := json.Unmarshal([]byte(regionsJSON.String), &r.Regions); err != nil {
			return nil, fmt.Errorf("failed to decode regions of report %s: %w", r.ID, err)
		}
	}
	if marginJSON.Valid {
		r.Margin = &models.MarginSummary{}
		if err := json.Unmarshal([]byte(marginJSON.String), r.Margin); err != nil {
			return nil, fmt.Errorf("failed to decode margin of report %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure SQLiteStore implements ReportStore.
var _ ReportStore = (*SQLiteStore)(nil)
