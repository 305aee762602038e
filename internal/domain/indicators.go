package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// IndicatorSnapshot son los indicadores recalculados desde cero en cada tick.
// No se persiste; los precios viven como decimal pero la matemática de los
// indicadores es float64 — precisión exacta solo importa en los precios de
// las órdenes, no en las señales.
type IndicatorSnapshot struct {
	EMA   float64
	RSI   float64
	Upper float64 // banda de Bollinger superior
	Lower float64 // banda de Bollinger inferior
}

// EMA calcula la media móvil exponencial sobre los últimos `period` precios.
// Pesos w_i = exp(linspace(-1, 0, period)), normalizados a suma 1: el precio
// más reciente recibe el peso mayor (e⁰).
func EMA(prices []decimal.Decimal, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("domain.EMA: period %d < 1", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("domain.EMA: need %d prices, have %d", period, len(prices))
	}

	weights := emaWeights(period)
	window := toFloats(prices[len(prices)-period:])

	var ema float64
	for i, p := range window {
		ema += p * weights[i]
	}
	return ema, nil
}

// emaWeights genera los pesos exponenciales normalizados para un periodo.
// Con period == 1 devuelve [1] (un único punto, peso completo).
func emaWeights(period int) []float64 {
	weights := make([]float64, period)
	var sum float64
	for i := range weights {
		x := -1.0
		if period > 1 {
			x = -1.0 + float64(i)/float64(period-1)
		}
		weights[i] = math.Exp(x)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// RSI calcula el índice de fuerza relativa con la semántica histórica: la
// ventana semilla son las PRIMERAS period+1 diferencias de la secuencia
// completa, no las más recientes. Es un edge case conocido de staleness que
// se preserva como contrato; ver RSIRecent para la variante corregida.
//
// Si no hay deltas negativos (down == 0), rs se define como 0 y el RSI
// resultante es 0 — una serie estrictamente creciente da RSI=0, no 100.
func RSI(prices []decimal.Decimal, period int) (float64, error) {
	deltas, err := rsiDeltas(prices, period)
	if err != nil {
		return 0, err
	}
	seed := deltas[:seedLen(period, len(deltas))]
	return rsiFromSeed(seed, period), nil
}

// RSIRecent es la variante corregida del RSI: usa las ÚLTIMAS period+1
// diferencias, reflejando el momentum reciente. Se activa con el flag de
// configuración rsi_use_recent_deltas.
func RSIRecent(prices []decimal.Decimal, period int) (float64, error) {
	deltas, err := rsiDeltas(prices, period)
	if err != nil {
		return 0, err
	}
	seed := deltas[len(deltas)-seedLen(period, len(deltas)):]
	return rsiFromSeed(seed, period), nil
}

func rsiDeltas(prices []decimal.Decimal, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("domain.RSI: period %d < 1", period)
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("domain.RSI: need at least 2 prices, have %d", len(prices))
	}
	floats := toFloats(prices)
	deltas := make([]float64, len(floats)-1)
	for i := 1; i < len(floats); i++ {
		deltas[i-1] = floats[i] - floats[i-1]
	}
	return deltas, nil
}

// seedLen acota la semilla a los deltas disponibles: si hay menos de
// period+1, la semilla se queda con los que haya, sin error.
func seedLen(period, available int) int {
	n := period + 1
	if n > available {
		n = available
	}
	return n
}

func rsiFromSeed(seed []float64, period int) float64 {
	var up, down float64
	for _, d := range seed {
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	up /= float64(period)
	down /= float64(period)

	rs := 0.0
	if down != 0 {
		rs = up / down
	}
	return 100 - 100/(1+rs)
}

// BollingerBands calcula las bandas de volatilidad sobre los últimos `period`
// precios: sma ± numStdDev·std, con desviación estándar poblacional (÷N).
func BollingerBands(prices []decimal.Decimal, period int, numStdDev float64) (upper, lower float64, err error) {
	if period < 1 {
		return 0, 0, fmt.Errorf("domain.BollingerBands: period %d < 1", period)
	}
	if len(prices) < period {
		return 0, 0, fmt.Errorf("domain.BollingerBands: need %d prices, have %d", period, len(prices))
	}

	window := toFloats(prices[len(prices)-period:])

	var sum float64
	for _, p := range window {
		sum += p
	}
	sma := sum / float64(period)

	var variance float64
	for _, p := range window {
		d := p - sma
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	return sma + numStdDev*std, sma - numStdDev*std, nil
}

func toFloats(prices []decimal.Decimal) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.InexactFloat64()
	}
	return out
}
