package domain

import "github.com/shopspring/decimal"

// PriceWindow es un buffer acotado de mid-prices recientes, ordenado de más
// antiguo a más reciente. Solo el tick handler hace Push; no es concurrente.
type PriceWindow struct {
	capacity int
	prices   []decimal.Decimal
}

// NewPriceWindow crea una ventana con la capacidad dada.
// Capacidad = max(ema_period, rsi_period, bollinger_period); la validación
// de config garantiza que todos los periodos son ≥ 1 antes de llegar aquí.
func NewPriceWindow(capacity int) *PriceWindow {
	return &PriceWindow{
		capacity: capacity,
		prices:   make([]decimal.Decimal, 0, capacity),
	}
}

// Push añade una observación. Si la ventana está llena, expulsa exactamente
// la entrada más antigua (FIFO) — los pushes llegan de uno en uno.
func (w *PriceWindow) Push(price decimal.Decimal) {
	if len(w.prices) == w.capacity {
		copy(w.prices, w.prices[1:])
		w.prices = w.prices[:len(w.prices)-1]
	}
	w.prices = append(w.prices, price)
}

// Ready devuelve true cuando hay suficiente historia para calcular todos
// los indicadores (longitud == capacidad).
func (w *PriceWindow) Ready() bool {
	return len(w.prices) >= w.capacity
}

// Len devuelve el número de precios almacenados.
func (w *PriceWindow) Len() int {
	return len(w.prices)
}

// Capacity devuelve la capacidad fija de la ventana.
func (w *PriceWindow) Capacity() int {
	return w.capacity
}

// Snapshot devuelve una copia ordenada (antiguo → reciente) del contenido.
func (w *PriceWindow) Snapshot() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.prices))
	copy(out, w.prices)
	return out
}
