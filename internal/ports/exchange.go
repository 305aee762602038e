package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// Exchange es la interfaz de capacidades que el core necesita del conector.
// Exactamente las cuatro operaciones del contrato; cualquier integración
// concreta (paper, testnet, real) la implementa. El core no gestiona retries
// ni timeouts — eso es contrato del conector.
type Exchange interface {
	// GetMidPrice devuelve el mid-price actual del par. ok == false significa
	// "dato aún no disponible": el tick se salta sin error.
	GetMidPrice(ctx context.Context, tradingPair string) (mid decimal.Decimal, ok bool, err error)

	// GetBalance devuelve el balance disponible de un asset.
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// CancelAllOrders cancela todas las órdenes abiertas del par.
	// Idempotente; fire-and-forget desde la perspectiva del core.
	CancelAllOrders(ctx context.Context) error

	// PlaceOrder coloca una orden limit. El core no consume el estado de
	// ejecución posterior, solo el acuse de colocación.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)
}
