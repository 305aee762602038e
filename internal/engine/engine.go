package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/mmbot/internal/domain"
	"github.com/alejandrodnm/mmbot/internal/ports"
)

// Config contiene los parámetros inmutables de la estrategia.
// Se construye una vez y se inyecta en New; nunca se muta.
type Config struct {
	Exchange    string
	TradingPair string

	OrderAmount decimal.Decimal
	BidSpread   decimal.Decimal // fracción del mid, en (0, 1)
	AskSpread   decimal.Decimal // fracción del mid, en (0, 1)

	InventorySkewEnabled   bool
	InventoryTargetBasePct decimal.Decimal

	EMAPeriod       int
	RSIPeriod       int
	BollingerPeriod int
	BollingerDev    float64

	// RSIUseRecentDeltas activa la variante corregida del RSI (deltas
	// recientes en vez de los más antiguos).
	RSIUseRecentDeltas bool

	RefreshInterval time.Duration

	StopLoss StopLossConfig
}

// StopLossConfig controla la parada de emergencia opcional.
type StopLossConfig struct {
	Enabled   bool
	Threshold float64 // caída fraccional respecto al entry price, ej. 0.02
	Cooldown  time.Duration
}

// WindowCapacity devuelve la capacidad de la ventana de precios:
// el mayor de los tres periodos de indicadores.
func (c Config) WindowCapacity() int {
	capacity := c.EMAPeriod
	if c.RSIPeriod > capacity {
		capacity = c.RSIPeriod
	}
	if c.BollingerPeriod > capacity {
		capacity = c.BollingerPeriod
	}
	return capacity
}

// Engine es el quote engine: un ciclo por tick, síncrono y de un solo
// goroutine. La ventana de precios es el único estado entre ticks.
type Engine struct {
	cfg        Config
	exchange   ports.Exchange
	storage    ports.Storage  // opcional, puede ser nil
	notifier   ports.Notifier // opcional, puede ser nil
	window     *domain.PriceWindow
	baseAsset  string
	quoteAsset string

	// Estado del stop-loss. entryPrice == zero significa sin posición de
	// referencia.
	entryPrice    decimal.Decimal
	cooldownUntil time.Time
}

// New crea un Engine con todas las dependencias inyectadas. No hay registro
// global de estrategias: la configuración llega explícita al constructor.
func New(cfg Config, exchange ports.Exchange, storage ports.Storage, notifier ports.Notifier) (*Engine, error) {
	base, quote, ok := strings.Cut(cfg.TradingPair, "-")
	if !ok || base == "" || quote == "" {
		return nil, fmt.Errorf("engine.New: invalid trading pair %q", cfg.TradingPair)
	}
	if cfg.WindowCapacity() < 1 {
		return nil, fmt.Errorf("engine.New: indicator periods must be >= 1")
	}
	return &Engine{
		cfg:        cfg,
		exchange:   exchange,
		storage:    storage,
		notifier:   notifier,
		window:     domain.NewPriceWindow(cfg.WindowCapacity()),
		baseAsset:  base,
		quoteAsset: quote,
	}, nil
}

// Run ejecuta el loop de quoting hasta que el contexto se cancele.
// Los ticks los serializa el ticker: un tick termina antes de que empiece
// el siguiente.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("quote engine starting",
		"pair", e.cfg.TradingPair,
		"refresh", e.cfg.RefreshInterval,
		"window", e.window.Capacity(),
		"skew", e.cfg.InventorySkewEnabled,
	)

	e.runTick(ctx)

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("quote engine stopped")
			return nil
		case <-ticker.C:
			e.runTick(ctx)
		}
	}
}

// RunOnce ejecuta exactamente un tick. Devuelve nil si el tick se saltó
// (mid no disponible, ventana incompleta o cooldown activo).
func (e *Engine) RunOnce(ctx context.Context) (*domain.TickReport, error) {
	return e.tick(ctx)
}

// runTick ejecuta un tick completo y journalea/notifica el resultado.
// Los errores del colaborador se loggean aquí; el core no reintenta.
func (e *Engine) runTick(ctx context.Context) {
	start := time.Now()

	report, err := e.tick(ctx)
	if err != nil {
		slog.Error("tick failed", "err", err)
		return
	}
	if report == nil {
		return // tick saltado, sin quotes
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, *report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if e.storage != nil {
		if err := e.storage.SaveTick(ctx, report.TickRecord); err != nil {
			slog.Warn("journal error", "err", err)
		}
	}

	slog.Debug("tick complete",
		"bid", report.BidPrice,
		"ask", report.AskPrice,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// tick es la máquina de estados por tick:
// mid → push → ready → indicadores → spreads → cancel → place.
func (e *Engine) tick(ctx context.Context) (*domain.TickReport, error) {
	mid, ok, err := e.exchange.GetMidPrice(ctx, e.cfg.TradingPair)
	if err != nil {
		return nil, fmt.Errorf("engine.tick: get mid price: %w", err)
	}
	if !ok {
		slog.Debug("mid price not available — skipping tick")
		return nil, nil
	}

	e.window.Push(mid)
	if !e.window.Ready() {
		slog.Debug("price window warming up",
			"have", e.window.Len(), "need", e.window.Capacity())
		return nil, nil
	}

	if skip, err := e.checkStopLoss(ctx, mid); err != nil {
		return nil, err
	} else if skip {
		return nil, nil
	}

	snapshot, err := e.computeIndicators()
	if err != nil {
		return nil, fmt.Errorf("engine.tick: indicators: %w", err)
	}

	spreads := domain.Spreads{Bid: e.cfg.BidSpread, Ask: e.cfg.AskSpread}
	spreads = spreads.AdjustForMomentum(snapshot.RSI)

	var baseBalance, quoteBalance decimal.Decimal
	skewed := false
	if e.cfg.InventorySkewEnabled {
		baseBalance, quoteBalance, err = e.fetchBalances(ctx)
		if err != nil {
			return nil, err
		}
		target := domain.TargetBase(baseBalance, quoteBalance, mid, e.cfg.InventoryTargetBasePct)
		adjusted := spreads.AdjustForInventory(baseBalance, target)
		skewed = !adjusted.Bid.Equal(spreads.Bid) || !adjusted.Ask.Equal(spreads.Ask)
		spreads = adjusted
	}

	quote := domain.MakeQuote(mid, spreads)

	if err := e.exchange.CancelAllOrders(ctx); err != nil {
		return nil, fmt.Errorf("engine.tick: cancel orders: %w", err)
	}
	if err := e.placeQuotes(ctx, quote); err != nil {
		return nil, err
	}

	// El entry de referencia del stop-loss se actualiza con cada tick que
	// llega a quotear.
	if e.cfg.StopLoss.Enabled {
		e.entryPrice = mid
	}

	return &domain.TickReport{
		TickRecord: domain.TickRecord{
			ID:          uuid.New().String(),
			TradingPair: e.cfg.TradingPair,
			At:          time.Now().UTC(),
			Mid:         mid,
			Indicators:  snapshot,
			BidSpread:   spreads.Bid,
			AskSpread:   spreads.Ask,
			BidPrice:    quote.Bid,
			AskPrice:    quote.Ask,
			Skewed:      skewed,
		},
		BaseBalance:  baseBalance,
		QuoteBalance: quoteBalance,
	}, nil
}

// computeIndicators recalcula los tres indicadores desde cero sobre el
// snapshot actual de la ventana. Sin updates incrementales: con ventanas
// pequeñas la corrección importa más que el rendimiento.
func (e *Engine) computeIndicators() (domain.IndicatorSnapshot, error) {
	prices := e.window.Snapshot()

	ema, err := domain.EMA(prices, e.cfg.EMAPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}

	rsiFn := domain.RSI
	if e.cfg.RSIUseRecentDeltas {
		rsiFn = domain.RSIRecent
	}
	rsi, err := rsiFn(prices, e.cfg.RSIPeriod)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}

	// Las bandas se calculan en cada tick pero la decisión de spread no las
	// consulta; solo se exponen en el panel de estado.
	upper, lower, err := domain.BollingerBands(prices, e.cfg.BollingerPeriod, e.cfg.BollingerDev)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}

	return domain.IndicatorSnapshot{EMA: ema, RSI: rsi, Upper: upper, Lower: lower}, nil
}

// checkStopLoss devuelve skip == true si el tick no debe quotear: o bien el
// cooldown sigue activo, o el mid cayó por debajo del entry más el umbral
// (en cuyo caso cancela todo y arranca el cooldown).
func (e *Engine) checkStopLoss(ctx context.Context, mid decimal.Decimal) (bool, error) {
	if !e.cfg.StopLoss.Enabled {
		return false, nil
	}
	if time.Now().Before(e.cooldownUntil) {
		slog.Debug("stop-loss cooldown active", "until", e.cooldownUntil)
		return true, nil
	}
	if e.entryPrice.IsZero() {
		return false, nil
	}

	pnl := mid.Sub(e.entryPrice).Div(e.entryPrice).InexactFloat64()
	if pnl >= -e.cfg.StopLoss.Threshold {
		return false, nil
	}

	slog.Warn("stop-loss triggered — cancelling quotes",
		"entry", e.entryPrice, "mid", mid, "pnl", fmt.Sprintf("%.2f%%", pnl*100))

	if err := e.exchange.CancelAllOrders(ctx); err != nil {
		return true, fmt.Errorf("engine.checkStopLoss: cancel orders: %w", err)
	}
	e.entryPrice = decimal.Zero
	e.cooldownUntil = time.Now().Add(e.cfg.StopLoss.Cooldown)
	return true, nil
}

// fetchBalances obtiene los balances base y quote del conector.
func (e *Engine) fetchBalances(ctx context.Context) (base, quote decimal.Decimal, err error) {
	base, err = e.exchange.GetBalance(ctx, e.baseAsset)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("engine.fetchBalances: %s: %w", e.baseAsset, err)
	}
	quote, err = e.exchange.GetBalance(ctx, e.quoteAsset)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("engine.fetchBalances: %s: %w", e.quoteAsset, err)
	}
	return base, quote, nil
}

// placeQuotes emite la orden de compra y la de venta, ambas limit y del
// mismo tamaño configurado.
func (e *Engine) placeQuotes(ctx context.Context, quote domain.QuoteResult) error {
	buy := domain.PlaceOrderRequest{
		Exchange:    e.cfg.Exchange,
		TradingPair: e.cfg.TradingPair,
		Side:        domain.SideBuy,
		Kind:        domain.OrderKindLimit,
		Price:       quote.Bid,
		Amount:      e.cfg.OrderAmount,
	}
	if _, err := e.exchange.PlaceOrder(ctx, buy); err != nil {
		return fmt.Errorf("engine.placeQuotes: buy: %w", err)
	}

	sell := buy
	sell.Side = domain.SideSell
	sell.Price = quote.Ask
	if _, err := e.exchange.PlaceOrder(ctx, sell); err != nil {
		return fmt.Errorf("engine.placeQuotes: sell: %w", err)
	}
	return nil
}
