package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// Storage persiste el journal de quotes emitidos por tick. Es auditoría,
// no estado: la ventana de precios nunca se persiste ni se restaura.
type Storage interface {
	// SaveTick persiste el registro de un tick que produjo quotes.
	SaveTick(ctx context.Context, rec domain.TickRecord) error

	// GetHistory devuelve los ticks registrados en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.TickRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
