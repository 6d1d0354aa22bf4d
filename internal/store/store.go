// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"zerodha-risk/internal/models"
)

// ReportStore persists analysis reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReports(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
	Close() error
}

// ReportFilter represents filters for querying reports. Zero fields do
// not filter.
type ReportFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
