package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side es el lado de una orden.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderKind es el tipo de orden. El core solo emite órdenes limit.
type OrderKind string

const OrderKindLimit OrderKind = "LIMIT"

// PlaceOrderRequest es la instrucción de colocación que el core emite al
// conector de exchange. El core no consume ningún resultado de ejecución.
type PlaceOrderRequest struct {
	Exchange    string
	TradingPair string
	Side        Side
	Kind        OrderKind
	Price       decimal.Decimal
	Amount      decimal.Decimal
}

// PlacedOrder es el acuse mínimo que devuelve el conector.
type PlacedOrder struct {
	OrderID     string
	TradingPair string
	Side        Side
	Price       decimal.Decimal
	Amount      decimal.Decimal
	PlacedAt    time.Time
}

// TickRecord es el registro de auditoría de un tick que produjo quotes.
// Se journalea tal cual; nunca se vuelve a leer para decidir (el estado de
// la estrategia vive solo en memoria).
type TickRecord struct {
	ID          string
	TradingPair string
	At          time.Time
	Mid         decimal.Decimal
	Indicators  IndicatorSnapshot
	BidSpread   decimal.Decimal
	AskSpread   decimal.Decimal
	BidPrice    decimal.Decimal
	AskPrice    decimal.Decimal
	Skewed      bool
}

// TickReport es el TickRecord más el contexto de balances para presentación.
type TickReport struct {
	TickRecord
	BaseBalance  decimal.Decimal
	QuoteBalance decimal.Decimal
}
