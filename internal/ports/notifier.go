package ports

import (
	"context"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Notifier presenta el resultado de cada señal procesada al operador.
// En la implementación de consola, imprime una línea compacta o una tabla.
type Notifier interface {
	Outcome(ctx context.Context, outcome domain.Outcome) error
}
