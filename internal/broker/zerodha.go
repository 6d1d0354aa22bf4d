// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/logging"
	"zerodha-risk/internal/models"
	"zerodha-risk/internal/performance"
	"zerodha-risk/internal/resilience"
	"zerodha-risk/pkg/utils"
)

// kiteClient is the subset of the Kite Connect client the broker uses.
type kiteClient interface {
	GetLoginURL() string
	GenerateSession(requestToken string, apiSecret string) (kiteconnect.UserSession, error)
	SetAccessToken(accessToken string)
	InvalidateAccessToken() (bool, error)
	GetUserProfile() (kiteconnect.UserProfile, error)
	GetInstruments() (kiteconnect.Instruments, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetBasketMargins(params kiteconnect.GetBasketParams) (kiteconnect.BasketMargins, error)
}

// Kite Connect allows ten requests a second per API key.
const defaultRequestsPerSecond = 10

// ZerodhaBroker implements Broker for Zerodha Kite Connect.
type ZerodhaBroker struct {
	client        kiteClient
	apiSecret     string
	userID        string
	accessToken   string
	tokenPath     string
	authenticated bool
	instruments   *InstrumentCache
	retry         utils.RetryConfig
	limiter       *performance.RateLimiter
	breaker       *resilience.CircuitBreaker
	today         func() time.Time
	logger        zerolog.Logger
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for Zerodha broker.
type ZerodhaConfig struct {
	APIKey             string
	APISecret          string
	UserID             string
	TokenPath          string
	InstrumentCacheTTL time.Duration
	RetryAttempts      int
	// RequestsPerSecond caps Kite API calls; zero uses the default.
	RequestsPerSecond float64
	Logger            zerolog.Logger
}

// NewZerodhaBroker creates a new Zerodha broker instance.
// It automatically loads any saved session from disk.
func NewZerodhaBroker(cfg ZerodhaConfig) *ZerodhaBroker {
	return newZerodhaBroker(kiteconnect.New(cfg.APIKey), cfg)
}

func newZerodhaBroker(client kiteClient, cfg ZerodhaConfig) *ZerodhaBroker {
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "zerodha-risk", "session.json")
	}

	retry := utils.DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RetryAttempts
	}
	retry.Retryable = func(err error) bool {
		return !errors.Is(err, errors.ErrNotAuthenticated) && !errors.Is(err, resilience.ErrCircuitOpen)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	zb := &ZerodhaBroker{
		client:    client,
		apiSecret: cfg.APISecret,
		userID:    cfg.UserID,
		tokenPath: tokenPath,
		retry:     retry,
		limiter:   performance.NewRateLimiter(rps, max(1, int(rps))),
		breaker:   resilience.NewCircuitBreaker("kite", resilience.DefaultCircuitBreakerConfig()),
		today:     utils.TodayIST,
		logger:    cfg.Logger.With().Str("component", "zerodha").Logger(),
	}
	zb.instruments = NewInstrumentCache(zb.fetchInstruments, cfg.InstrumentCacheTTL)

	if err := zb.loadSession(); err != nil && !os.IsNotExist(err) {
		zb.logger.Debug().Err(err).Msg("No usable saved session")
	}

	return zb
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginURL returns the Kite login URL that yields a request token.
func (z *ZerodhaBroker) LoginURL() string {
	return z.client.GetLoginURL()
}

// CompleteLogin exchanges the request token for an access token and
// persists it until the next 06:00 IST.
func (z *ZerodhaBroker) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.apiSecret)
	if err != nil {
		return errors.NewBrokerError("session", "failed to generate session",
			fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err))
	}

	z.mu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	if err := z.saveSession(session.AccessToken, time.Now()); err != nil {
		// Session is valid for this process even if it cannot be persisted.
		z.logger.Warn().Err(err).Msg("Failed to persist session")
	}
	return nil
}

// Logout invalidates the session and removes the persisted token.
func (z *ZerodhaBroker) Logout(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.authenticated {
		if _, err := z.client.InvalidateAccessToken(); err != nil {
			z.logger.Warn().Err(err).Msg("Failed to invalidate token")
		}
	}

	z.accessToken = ""
	z.authenticated = false
	z.instruments.Invalidate()

	if err := os.Remove(z.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// IsAuthenticated returns whether a session token is loaded.
func (z *ZerodhaBroker) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.authenticated
}

// VerifySession checks the loaded token against the profile endpoint.
func (z *ZerodhaBroker) VerifySession(ctx context.Context) (string, error) {
	if !z.IsAuthenticated() {
		return "", errors.ErrNotAuthenticated
	}
	profile, err := z.client.GetUserProfile()
	if err != nil {
		z.mu.Lock()
		z.authenticated = false
		z.mu.Unlock()
		return "", errors.Wrap(errors.ErrSessionExpired, err.Error())
	}
	return profile.UserName, nil
}

func (z *ZerodhaBroker) loadSession() error {
	data, err := os.ReadFile(z.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	if time.Now().After(session.ExpiresAt) {
		return errors.ErrSessionExpired
	}

	z.mu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	return nil
}

func (z *ZerodhaBroker) saveSession(accessToken string, issuedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(z.tokenPath), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(sessionData{
		AccessToken: accessToken,
		UserID:      z.userID,
		ExpiresAt:   utils.SessionExpiry(issuedAt),
	})
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(z.tokenPath, data, 0600)
}

func (z *ZerodhaBroker) fetchInstruments(ctx context.Context) ([]models.Instrument, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	raw, err := kiteCall(ctx, z, "GET", "/instruments", z.client.GetInstruments)
	if err != nil {
		return nil, errors.NewBrokerError("instruments", "failed to get instruments", err)
	}

	result := make([]models.Instrument, len(raw))
	for i, inst := range raw {
		result[i] = models.Instrument{
			Token:     uint32(inst.InstrumentToken),
			Symbol:    inst.Tradingsymbol,
			Name:      inst.Name,
			Exchange:  models.Exchange(inst.Exchange),
			Segment:   inst.Segment,
			LotSize:   int(inst.LotSize),
			TickSize:  inst.TickSize,
			Expiry:    inst.Expiry.Time,
			Strike:    inst.StrikePrice,
			InstrType: inst.InstrumentType,
		}
	}

	z.logger.Debug().Int("count", len(result)).Msg("Instruments loaded")
	return result, nil
}

func (z *ZerodhaBroker) lastPrice(ctx context.Context, key string) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, errors.ErrNotAuthenticated
	}

	ltp, err := kiteCall(ctx, z, "GET", "/quote/ltp", func() (kiteconnect.QuoteLTP, error) {
		return z.client.GetLTP(key)
	})
	if err != nil {
		return 0, errors.NewBrokerError("ltp", "failed to get last price for "+key, err)
	}

	q, ok := ltp[key]
	if !ok {
		return 0, errors.Wrapf(errors.ErrSymbolNotFound, "no quote for %s", key)
	}
	return q.LastPrice, nil
}

// Ensure ZerodhaBroker implements Broker interface
var _ Broker = (*ZerodhaBroker)(nil)

// BreakerStats reports the state of the Kite circuit breaker.
func (z *ZerodhaBroker) BreakerStats() resilience.CircuitBreakerStats {
	return z.breaker.Stats()
}

// kiteCall runs one Kite request paced by the rate limiter, guarded by the
// circuit breaker and retried on transient failure.
func kiteCall[T any](ctx context.Context, z *ZerodhaBroker, method, endpoint string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := utils.RetryWithResult(ctx, z.retry, func() (T, error) {
		if err := z.limiter.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		return resilience.ExecuteWithResult(z.breaker, fn, nil)
	})
	logging.LogAPICall(z.logger, method, endpoint, time.Since(start), err)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		z.logger.Warn().Str("endpoint", endpoint).Msg("Kite API circuit open, failing fast")
	}
	return out, err
}
