package broker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

// InstrumentLoader fetches the full instrument dump.
type InstrumentLoader func(ctx context.Context) ([]models.Instrument, error)

// InstrumentCache holds the instrument dump for the lifetime of its owner.
// Entries are refetched once the TTL has elapsed or after Invalidate; a zero
// TTL keeps them until invalidated.
type InstrumentCache struct {
	load      InstrumentLoader
	ttl       time.Duration
	now       func() time.Time
	mu        sync.Mutex
	items     []models.Instrument
	fetchedAt time.Time
}

// NewInstrumentCache creates a cache backed by load.
func NewInstrumentCache(load InstrumentLoader, ttl time.Duration) *InstrumentCache {
	return &InstrumentCache{
		load: load,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached instruments, loading them if needed.
func (c *InstrumentCache) Get(ctx context.Context) ([]models.Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items != nil && (c.ttl == 0 || c.now().Sub(c.fetchedAt) < c.ttl) {
		return c.items, nil
	}

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Instrument{}
	}
	c.items = items
	c.fetchedAt = c.now()
	return c.items, nil
}

// Invalidate drops the cached instruments.
func (c *InstrumentCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.fetchedAt = time.Time{}
}

// ResolveContract finds the single option contract matching the row. The
// expiry must match an exchange-listed date exactly.
func ResolveContract(instruments []models.Instrument, row models.Row) (models.Instrument, error) {
	symbol := strings.ToUpper(row.Symbol)
	optType := string(row.Leg.Type)

	var candidates []models.Instrument
	for _, inst := range instruments {
		if inst.Name != symbol || inst.InstrType != optType {
			continue
		}
		if inst.Strike != row.Leg.Strike || !sameDay(inst.Expiry, row.Expiry) {
			continue
		}
		candidates = append(candidates, inst)
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return models.Instrument{}, &errors.ContractError{
			Symbol:      symbol,
			Expiry:      row.Expiry,
			Strike:      row.Leg.Strike,
			OptionType:  optType,
			ValidExpiry: listedExpiries(instruments, symbol),
			Err:         errors.ErrContractNotFound,
		}
	}
	return models.Instrument{}, &errors.ContractError{
		Symbol:     symbol,
		Expiry:     row.Expiry,
		Strike:     row.Leg.Strike,
		OptionType: optType,
		Err:        errors.ErrAmbiguousContract,
	}
}

// listedExpiries returns the distinct option expiries listed for symbol,
// ascending.
func listedExpiries(instruments []models.Instrument, symbol string) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, inst := range instruments {
		if inst.Name != symbol || !inst.IsOption() || inst.Expiry.IsZero() {
			continue
		}
		d := dayOf(inst.Expiry)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
