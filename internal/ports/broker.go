package ports

import (
	"context"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Broker es la sesión compartida con el gateway de brokerage.
// Es una conexión única: los callers serializan el acceso (la pipeline
// usa un mutex por ticker) o documentan single-writer.
type Broker interface {
	// IsConnected reporta el estado de la sesión como capability
	// explícita: "desconectado" es un branch de primera clase, no un
	// error genérico.
	IsConnected(ctx context.Context) bool

	// ResolveContract resuelve un ticker a un contrato tradeable.
	// Devuelve domain.ErrContractNotFound si el ticker no existe.
	ResolveContract(ctx context.Context, ticker string) (domain.Contract, error)

	// SubmitMarketOrder envía una orden market TIF DAY y devuelve el
	// handle para observar su estado.
	SubmitMarketOrder(ctx context.Context, contract domain.Contract, action domain.Direction, qty float64) (domain.OrderHandle, error)

	// PollStatus devuelve el estado actual de la orden.
	PollStatus(ctx context.Context, handle domain.OrderHandle) (domain.OrderSnapshot, error)
}
