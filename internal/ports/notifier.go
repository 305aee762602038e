package ports

import (
	"context"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// Notifier presenta el estado de cada tick al operador.
type Notifier interface {
	// Notify muestra el resultado de un tick: quotes, indicadores y balances.
	// En la implementación de consola, imprime una línea compacta o un panel.
	Notify(ctx context.Context, report domain.TickReport) error
}
