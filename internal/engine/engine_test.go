package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// fakeExchange reproduce una secuencia de mids y registra cada llamada en
// orden. Un mid vacío simula "precio no disponible".
type fakeExchange struct {
	mids       []string
	midIdx     int
	balances   map[string]decimal.Decimal
	balanceErr error

	events []string
	orders []domain.PlaceOrderRequest
}

func (f *fakeExchange) GetMidPrice(_ context.Context, _ string) (decimal.Decimal, bool, error) {
	if f.midIdx >= len(f.mids) {
		return decimal.Zero, false, nil
	}
	raw := f.mids[f.midIdx]
	f.midIdx++
	if raw == "" {
		return decimal.Zero, false, nil
	}
	return decimal.RequireFromString(raw), true, nil
}

func (f *fakeExchange) GetBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	f.events = append(f.events, "balance:"+asset)
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balances[asset], nil
}

func (f *fakeExchange) CancelAllOrders(context.Context) error {
	f.events = append(f.events, "cancel")
	return nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	f.events = append(f.events, "place:"+string(req.Side))
	f.orders = append(f.orders, req)
	return domain.PlacedOrder{OrderID: "fake", TradingPair: req.TradingPair}, nil
}

func testConfig() Config {
	return Config{
		Exchange:    "paper",
		TradingPair: "ETH-USDT",
		OrderAmount: decimal.RequireFromString("0.01"),
		BidSpread:   decimal.RequireFromString("0.01"),
		AskSpread:   decimal.RequireFromString("0.01"),

		// Capacidad de ventana 3 (Bollinger); RSI con 2 deltas disponibles.
		EMAPeriod:       2,
		RSIPeriod:       2,
		BollingerPeriod: 3,
		BollingerDev:    2.0,

		RefreshInterval: time.Second,
	}
}

// runTicks ejecuta n ticks y devuelve el último report no nulo.
func runTicks(t *testing.T, e *Engine, n int) *domain.TickReport {
	t.Helper()
	var last *domain.TickReport
	for i := 0; i < n; i++ {
		report, err := e.RunOnce(context.Background())
		require.NoError(t, err)
		if report != nil {
			last = report
		}
	}
	return last
}

func TestNew_RejectsInvalidPair(t *testing.T) {
	cfg := testConfig()
	cfg.TradingPair = "ETHUSDT"
	_, err := New(cfg, &fakeExchange{}, nil, nil)
	assert.Error(t, err)
}

func TestNew_RejectsZeroPeriods(t *testing.T) {
	cfg := testConfig()
	cfg.EMAPeriod, cfg.RSIPeriod, cfg.BollingerPeriod = 0, 0, 0
	_, err := New(cfg, &fakeExchange{}, nil, nil)
	assert.Error(t, err)
}

func TestEngine_NoQuotesWhileWarmingUp(t *testing.T) {
	fake := &fakeExchange{mids: []string{"100", "102"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 2)
	assert.Nil(t, report)
	assert.Empty(t, fake.events) // ni cancel ni place antes de llenar la ventana
}

func TestEngine_NeutralQuote(t *testing.T) {
	// Serie 100→102→100: deltas +2/-2 → RSI 50, sin ajuste de momentum.
	fake := &fakeExchange{mids: []string{"100", "102", "100"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	require.NotNil(t, report)

	assert.InDelta(t, 50.0, report.Indicators.RSI, 1e-9)
	assert.True(t, report.BidPrice.Equal(decimal.RequireFromString("99")), "got %s", report.BidPrice)
	assert.True(t, report.AskPrice.Equal(decimal.RequireFromString("101")), "got %s", report.AskPrice)
	assert.False(t, report.Skewed)
	assert.NotEmpty(t, report.ID)

	require.Len(t, fake.orders, 2)
	assert.Equal(t, domain.SideBuy, fake.orders[0].Side)
	assert.Equal(t, domain.SideSell, fake.orders[1].Side)
	assert.True(t, fake.orders[0].Amount.Equal(decimal.RequireFromString("0.01")))
}

func TestEngine_CancelsBeforePlacing(t *testing.T) {
	fake := &fakeExchange{mids: []string{"100", "102", "100"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	runTicks(t, e, 3)
	assert.Equal(t, []string{"cancel", "place:BUY", "place:SELL"}, fake.events)
}

func TestEngine_SkipsUnavailableMid(t *testing.T) {
	// El hueco en la serie no rompe el loop ni coloca órdenes.
	fake := &fakeExchange{mids: []string{"100", "", "102"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	assert.Nil(t, report) // solo 2 precios reales: ventana incompleta
	assert.Empty(t, fake.events)
}

func TestEngine_OversoldTightensBid(t *testing.T) {
	// Serie estrictamente creciente → RSI 0 (< 30): bid spread ×0.8.
	fake := &fakeExchange{mids: []string{"100", "101", "102"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	require.NotNil(t, report)

	assert.Equal(t, 0.0, report.Indicators.RSI)
	// bid = 102×(1−0.008) = 101.184, ask = 102×1.01 = 103.02
	assert.True(t, report.BidPrice.Equal(decimal.RequireFromString("101.184")), "got %s", report.BidPrice)
	assert.True(t, report.AskPrice.Equal(decimal.RequireFromString("103.02")), "got %s", report.AskPrice)
}

func TestEngine_InventorySkewTightensBid(t *testing.T) {
	// Todo el valor en quote: target base 5 > balance 0 → bid spread ×0.9.
	cfg := testConfig()
	cfg.InventorySkewEnabled = true
	cfg.InventoryTargetBasePct = decimal.RequireFromString("0.5")

	fake := &fakeExchange{
		mids: []string{"100", "102", "100"},
		balances: map[string]decimal.Decimal{
			"ETH":  decimal.Zero,
			"USDT": decimal.RequireFromString("1000"),
		},
	}
	e, err := New(cfg, fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	require.NotNil(t, report)

	assert.True(t, report.Skewed)
	// bid = 100×(1−0.009) = 99.1
	assert.True(t, report.BidPrice.Equal(decimal.RequireFromString("99.1")), "got %s", report.BidPrice)
	assert.True(t, report.AskPrice.Equal(decimal.RequireFromString("101")))
	assert.True(t, report.QuoteBalance.Equal(decimal.RequireFromString("1000")))
}

func TestEngine_BalancedInventoryNotSkewed(t *testing.T) {
	cfg := testConfig()
	cfg.InventorySkewEnabled = true
	cfg.InventoryTargetBasePct = decimal.RequireFromString("0.5")

	// base 5 × mid 100 = 500 = quote → exactamente en target.
	fake := &fakeExchange{
		mids: []string{"100", "102", "100"},
		balances: map[string]decimal.Decimal{
			"ETH":  decimal.RequireFromString("5"),
			"USDT": decimal.RequireFromString("500"),
		},
	}
	e, err := New(cfg, fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	require.NotNil(t, report)
	assert.False(t, report.Skewed)
	assert.True(t, report.BidPrice.Equal(decimal.RequireFromString("99")))
}

func TestEngine_NoBalanceCallsWhenSkewDisabled(t *testing.T) {
	fake := &fakeExchange{mids: []string{"100", "102", "100"}}
	e, err := New(testConfig(), fake, nil, nil)
	require.NoError(t, err)

	runTicks(t, e, 3)
	assert.NotContains(t, fake.events, "balance:ETH")
	assert.NotContains(t, fake.events, "balance:USDT")
}

func TestEngine_BalanceErrorAbortsTick(t *testing.T) {
	cfg := testConfig()
	cfg.InventorySkewEnabled = true
	cfg.InventoryTargetBasePct = decimal.RequireFromString("0.5")

	fake := &fakeExchange{
		mids:       []string{"100", "102", "100"},
		balanceErr: errors.New("venue down"),
	}
	e, err := New(cfg, fake, nil, nil)
	require.NoError(t, err)

	runTicks(t, e, 2)
	_, err = e.RunOnce(context.Background())
	require.Error(t, err)
	assert.NotContains(t, fake.events, "cancel") // sin balances no se toca el libro
}

func TestEngine_StopLossCancelsAndCoolsDown(t *testing.T) {
	cfg := testConfig()
	cfg.StopLoss = StopLossConfig{Enabled: true, Threshold: 0.02, Cooldown: time.Hour}

	// Tick 3 quotea con mid 100 (entry = 100); tick 4 cae a 90 (−10%).
	fake := &fakeExchange{mids: []string{"100", "102", "100", "90", "100"}}
	e, err := New(cfg, fake, nil, nil)
	require.NoError(t, err)

	report := runTicks(t, e, 3)
	require.NotNil(t, report)
	fake.events = nil

	// Disparo: cancela todo, no quotea.
	report, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, []string{"cancel"}, fake.events)

	// Cooldown: el siguiente tick tampoco quotea.
	fake.events = nil
	report, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, fake.events)
}

func TestEngine_SmallDropDoesNotTriggerStopLoss(t *testing.T) {
	cfg := testConfig()
	cfg.StopLoss = StopLossConfig{Enabled: true, Threshold: 0.05, Cooldown: time.Hour}

	// Caída del 1%: dentro del umbral del 5%, se sigue quoteando.
	fake := &fakeExchange{mids: []string{"100", "102", "100", "99"}}
	e, err := New(cfg, fake, nil, nil)
	require.NoError(t, err)

	runTicks(t, e, 3)
	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Mid.Equal(decimal.RequireFromString("99")))
}

func TestWindowCapacity_IsLargestPeriod(t *testing.T) {
	cfg := Config{EMAPeriod: 15, RSIPeriod: 14, BollingerPeriod: 20}
	assert.Equal(t, 20, cfg.WindowCapacity())

	cfg = Config{EMAPeriod: 30, RSIPeriod: 14, BollingerPeriod: 20}
	assert.Equal(t, 30, cfg.WindowCapacity())
}
