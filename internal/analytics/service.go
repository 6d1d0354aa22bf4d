// Package analytics turns a pasted position book into a risk report:
// breakevens, probability of profit and, when a broker session is
// available, live spot and basket margin.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/logging"
	"zerodha-risk/internal/models"
	"zerodha-risk/internal/payoff"
	"zerodha-risk/internal/performance"
	"zerodha-risk/internal/positions"
	"zerodha-risk/internal/probability"
	"zerodha-risk/pkg/utils"
)

// SpotProvider resolves the current price of an underlying.
type SpotProvider interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// MarginCalculator computes the basket margin of a set of rows.
type MarginCalculator interface {
	Margin(ctx context.Context, rows []models.Row) (*models.MarginSummary, error)
}

// ReportSaver persists finished reports.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *models.Report) error
}

// Config holds analysis defaults.
type Config struct {
	// DefaultVolatility is the annualised volatility, as a fraction, used
	// when a request does not carry one.
	DefaultVolatility float64
	// Workers bounds AnalyzeBatch concurrency; zero means one per CPU.
	Workers int
}

// Dependencies are the collaborators a Service may use. Any of them may
// be nil; requests that need a missing one fail.
type Dependencies struct {
	Spot   SpotProvider
	Margin MarginCalculator
	Store  ReportSaver
	Logger zerolog.Logger
}

// Request describes one analysis.
type Request struct {
	// Positions is the raw position text, one leg per line.
	Positions string
	// Volatility is annualised, as a fraction. Zero uses the default.
	Volatility float64
	// Spot overrides the live price lookup when positive.
	Spot float64
	// ValuationDate is the date probabilities are computed from. Zero
	// means today in IST.
	ValuationDate time.Time
	// IncludeMargin requests a basket margin from the broker.
	IncludeMargin bool
	// Save persists the report after a successful analysis.
	Save bool
}

// Result pairs a batch request with its outcome.
type Result struct {
	Report *models.Report
	Err    error
}

// Service runs analyses.
type Service struct {
	cfg    Config
	spot   SpotProvider
	margin MarginCalculator
	store  ReportSaver
	logger zerolog.Logger
	now    func() time.Time
	today  func() time.Time
	newID  func() string
}

// NewService creates an analysis service.
func NewService(cfg Config, deps Dependencies) *Service {
	return &Service{
		cfg:    cfg,
		spot:   deps.Spot,
		margin: deps.Margin,
		store:  deps.Store,
		logger: deps.Logger.With().Str("component", "analytics").Logger(),
		now:    time.Now,
		today:  utils.TodayIST,
		newID:  func() string { return uuid.New().String() },
	}
}

// Breakevens parses the positions and returns their breakeven prices. It
// needs no broker.
func (s *Service) Breakevens(raw string, valuation time.Time) ([]float64, error) {
	if valuation.IsZero() {
		valuation = s.today()
	}
	book, err := positions.Parse(raw, valuation)
	if err != nil {
		return nil, err
	}
	return payoff.Breakevens(book.Legs()), nil
}

// Analyze evaluates one position book.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.Report, error) {
	start := time.Now()

	valuation := req.ValuationDate
	if valuation.IsZero() {
		valuation = s.today()
	}
	valuation = utils.DateOf(valuation)

	book, err := positions.Parse(req.Positions, valuation)
	if err != nil {
		return nil, err
	}
	symbol, err := book.Underlying()
	if err != nil {
		return nil, err
	}
	expiry, err := book.Expiry()
	if err != nil {
		return nil, err
	}

	logger := logging.WithOperation(logging.WithSymbol(s.logger, symbol), "analyze")
	legs := book.Legs()

	spot, err := s.spotPrice(ctx, symbol, req.Spot)
	if err != nil {
		return nil, err
	}

	vol := req.Volatility
	if vol == 0 {
		vol = s.cfg.DefaultVolatility
	}

	model, err := probability.NewPriceModelForExpiry(spot, vol, valuation, expiry)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:                  s.newID(),
		CreatedAt:           s.now().UTC(),
		ValuationDate:       valuation,
		Symbol:              symbol,
		Expiry:              expiry,
		Spot:                spot,
		Volatility:          vol,
		TimeToExpiry:        model.Params().TimeToExpiry,
		Rows:                book.Rows(),
		TotalValue:          book.TotalValue(),
		Breakevens:          payoff.Breakevens(legs),
		ProbabilityOfProfit: probability.ProbabilityOfProfit(legs, model),
		Regions:             priceRegions(legs, model),
	}
	ext := payoffExtremes(legs)
	report.MaxProfit = ext.maxProfit
	report.MaxLoss = ext.maxLoss
	report.UnboundedProfit = ext.unboundedProfit
	report.UnboundedLoss = ext.unboundedLoss

	if req.IncludeMargin {
		if s.margin == nil {
			return nil, errors.Wrap(errors.ErrNotAuthenticated, "margin requires a broker session")
		}
		margin, err := s.margin.Margin(ctx, report.Rows)
		if err != nil {
			return nil, err
		}
		report.Margin = margin
	}

	if req.Save {
		if s.store == nil {
			return nil, errors.Wrap(errors.ErrConfigInvalid, "no report store configured")
		}
		if err := s.store.SaveReport(ctx, report); err != nil {
			return nil, errors.Wrap(err, "failed to save report")
		}
		saved := logging.WithReportID(logger, report.ID)
		saved.Debug().Msg("Report saved")
	}

	logging.LogAnalysis(logger, symbol, len(legs), spot, report.ProbabilityOfProfit, time.Since(start))
	return report, nil
}

// AnalyzeBatch evaluates independent position books concurrently. Results
// are returned in request order; one failing request does not affect the
// others.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	pool := performance.NewWorkerPool(s.cfg.Workers)
	pool.Start()
	defer pool.Stop()

	err := pool.Run(ctx, len(reqs), func(i int) {
		report, err := s.Analyze(ctx, reqs[i])
		results[i] = Result{Report: report, Err: err}
	})
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	batchLog := logging.WithOperation(s.logger, "batch")
	batchLog.Info().
		Int("requests", len(reqs)).
		Int("failed", failed).
		Msg("Batch analysed")
	return results, nil
}

func (s *Service) spotPrice(ctx context.Context, symbol string, override float64) (float64, error) {
	if override > 0 {
		return override, nil
	}
	if s.spot == nil {
		return 0, errors.NewValidationError(errors.ErrInvalidParameter, "spot", override,
			"no spot price given and no broker session to fetch one")
	}
	spot, err := s.spot.SpotPrice(ctx, symbol)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch spot for %s", symbol)
	}
	return spot, nil
}

func priceRegions(legs models.Position, dist probability.CDF) []models.PriceRegion {
	regions := probability.ProfitRegions(legs)
	out := make([]models.PriceRegion, len(regions))
	for i, r := range regions {
		out[i] = models.PriceRegion{
			Low:         r.Low,
			High:        r.High,
			Profit:      r.Profit,
			Probability: dist.CumulativeProbability(r.High) - dist.CumulativeProbability(r.Low),
		}
	}
	return out
}
