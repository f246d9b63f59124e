package ports

import (
	"context"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// AuditStore persiste un registro por señal procesada, best-effort.
// El histórico en memoria (RunHistory) sigue siendo la fuente de verdad;
// este store existe solo para auditoría post-mortem.
type AuditStore interface {
	RecordOutcome(ctx context.Context, outcome domain.Outcome) error
	Close() error
}
