package domain

import "github.com/shopspring/decimal"

// Umbrales RSI del ajuste de momentum. Constantes fijas del core,
// no configurables.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// Multiplicadores de ajuste de spread. Estrechar un spread atrae fills
// en ese lado.
var (
	momentumTighten  = decimal.NewFromFloat(0.8) // ajuste por RSI
	inventoryTighten = decimal.NewFromFloat(0.9) // ajuste por skew de inventario
)

var one = decimal.NewFromInt(1)

// Spreads son los spreads bid/ask como fracciones del mid-price.
// Precondición del caller: los spreads base deben estar en (0, 1);
// los multiplicadores encadenados no se recortan.
type Spreads struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// AdjustForMomentum aplica el ajuste por RSI:
//   - RSI < 30 (sobreventa, bullish) → estrecha el bid ×0.8
//   - RSI > 70 (sobrecompra, bearish) → estrecha el ask ×0.8
//   - en [30, 70] no cambia nada
func (s Spreads) AdjustForMomentum(rsi float64) Spreads {
	switch {
	case rsi < RSIOversold:
		s.Bid = s.Bid.Mul(momentumTighten)
	case rsi > RSIOverbought:
		s.Ask = s.Ask.Mul(momentumTighten)
	}
	return s
}

// AdjustForInventory aplica el skew de inventario:
//   - base < target (falta base, queremos comprar) → estrecha el bid ×0.9
//   - base > target (sobra base, queremos vender) → estrecha el ask ×0.9
//   - iguales → sin cambio
func (s Spreads) AdjustForInventory(baseBalance, targetBase decimal.Decimal) Spreads {
	switch baseBalance.Cmp(targetBase) {
	case -1:
		s.Bid = s.Bid.Mul(inventoryTighten)
	case 1:
		s.Ask = s.Ask.Mul(inventoryTighten)
	}
	return s
}

// TargetBase calcula el inventario base objetivo:
// target = (base·mid + quote) · targetPct / mid.
func TargetBase(baseBalance, quoteBalance, midPrice, targetPct decimal.Decimal) decimal.Decimal {
	totalValue := baseBalance.Mul(midPrice).Add(quoteBalance)
	return totalValue.Mul(targetPct).Div(midPrice)
}

// QuoteResult son los precios bid/ask derivados en un tick. Se consume
// inmediatamente por el placement de órdenes; no se retiene entre ticks.
type QuoteResult struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// MakeQuote convierte spreads ajustados en precios absolutos alrededor del mid:
// bid = mid·(1 − bidSpread), ask = mid·(1 + askSpread).
func MakeQuote(mid decimal.Decimal, s Spreads) QuoteResult {
	return QuoteResult{
		Bid: mid.Mul(one.Sub(s.Bid)),
		Ask: mid.Mul(one.Add(s.Ask)),
	}
}
