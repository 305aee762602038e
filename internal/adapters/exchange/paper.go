package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// Paper implements ports.Exchange against an in-memory simulated venue:
// configurable starting balances, a synthetic mid-price walk, and a virtual
// open-order set. Order mutations go through a rate limiter so paper mode
// behaves like a real venue's order endpoints.
type Paper struct {
	mu          sync.Mutex
	tradingPair string
	balances    map[string]decimal.Decimal
	open        []domain.PlacedOrder
	mid         decimal.Decimal
	drift       float64
	volatility  float64
	rng         *rand.Rand
	limiter     *rate.Limiter
}

// PaperConfig configures the simulated venue.
type PaperConfig struct {
	TradingPair  string
	BaseAsset    string
	QuoteAsset   string
	BaseBalance  decimal.Decimal
	QuoteBalance decimal.Decimal

	// InitialMid is the starting mid-price. Each GetMidPrice call advances
	// the walk: mid *= 1 + Drift + Volatility*u, u uniform in [-1, 1).
	// With Volatility == 0 the feed is fully deterministic.
	InitialMid decimal.Decimal
	Drift      float64
	Volatility float64
	Seed       int64

	// OrdersPerSec throttles place/cancel calls. 0 means no limit.
	OrdersPerSec float64
}

// NewPaper builds a simulated exchange.
func NewPaper(cfg PaperConfig) (*Paper, error) {
	if cfg.TradingPair == "" || cfg.BaseAsset == "" || cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("exchange.NewPaper: trading pair and assets are required")
	}
	if cfg.InitialMid.Sign() <= 0 {
		return nil, fmt.Errorf("exchange.NewPaper: initial mid must be > 0, got %s", cfg.InitialMid)
	}

	limit := rate.Inf
	burst := 1
	if cfg.OrdersPerSec > 0 {
		limit = rate.Limit(cfg.OrdersPerSec)
		burst = int(cfg.OrdersPerSec) + 1
	}

	return &Paper{
		tradingPair: cfg.TradingPair,
		balances: map[string]decimal.Decimal{
			cfg.BaseAsset:  cfg.BaseBalance,
			cfg.QuoteAsset: cfg.QuoteBalance,
		},
		mid:        cfg.InitialMid,
		drift:      cfg.Drift,
		volatility: cfg.Volatility,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// GetMidPrice advances the synthetic walk one step and returns the new mid.
// Unknown pairs report "not available" rather than an error, mirroring a
// venue that has no book for the pair yet.
func (p *Paper) GetMidPrice(_ context.Context, tradingPair string) (decimal.Decimal, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tradingPair != p.tradingPair {
		return decimal.Zero, false, nil
	}

	step := p.drift
	if p.volatility > 0 {
		step += p.volatility * (2*p.rng.Float64() - 1)
	}
	p.mid = p.mid.Mul(decimal.NewFromFloat(1 + step))
	return p.mid, true, nil
}

// GetBalance returns the simulated balance for an asset.
func (p *Paper) GetBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	balance, ok := p.balances[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("exchange.Paper: unknown asset %q", asset)
	}
	return balance, nil
}

// CancelAllOrders clears the virtual open-order set. Idempotent.
func (p *Paper) CancelAllOrders(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("exchange.Paper: cancel throttled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = p.open[:0]
	return nil
}

// PlaceOrder records a virtual limit order and returns its acknowledgement.
func (p *Paper) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	if req.Kind != domain.OrderKindLimit {
		return domain.PlacedOrder{}, fmt.Errorf("exchange.Paper: unsupported order kind %q", req.Kind)
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return domain.PlacedOrder{}, fmt.Errorf("exchange.Paper: unsupported side %q", req.Side)
	}
	if req.Price.Sign() <= 0 || req.Amount.Sign() <= 0 {
		return domain.PlacedOrder{}, fmt.Errorf("exchange.Paper: price and amount must be > 0")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("exchange.Paper: place throttled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	order := domain.PlacedOrder{
		OrderID:     uuid.New().String(),
		TradingPair: req.TradingPair,
		Side:        req.Side,
		Price:       req.Price,
		Amount:      req.Amount,
		PlacedAt:    time.Now().UTC(),
	}
	p.open = append(p.open, order)
	return order, nil
}

// OpenOrders returns a copy of the virtual open-order set.
func (p *Paper) OpenOrders() []domain.PlacedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.PlacedOrder, len(p.open))
	copy(out, p.open)
	return out
}

// SetMid overrides the current mid-price. Used by tests and scripted runs.
func (p *Paper) SetMid(mid decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mid = mid
}
