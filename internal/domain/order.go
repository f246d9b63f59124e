package domain

import "time"

// OrderIntent es la instrucción de orden derivada de una señal que pasó
// el gate de reliability. Lleva el Breakdown que la autorizó para audit.
type OrderIntent struct {
	Ticker       string
	Action       Direction
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	PositionSize float64
	Breakdown    Breakdown
}

// RejectionRecord es el resultado de una señal que NO se convierte en
// orden. Economía a cero: una señal rechazada nunca mueve dinero.
type RejectionRecord struct {
	Ticker      string
	Reason      string
	Reliability float64
}

// FailReason clasifica por qué falló una ejecución.
type FailReason string

const (
	FailBrokerUnreachable FailReason = "BrokerUnreachable"
	FailContractNotFound  FailReason = "ContractNotFound"
	FailHoldSignal        FailReason = "HoldSignal"
	FailNotFilled         FailReason = "NotFilled"
	FailException         FailReason = "Exception"
)

// OrderStatus es el estado terminal reportado en OrderResult.
type OrderStatus string

const (
	StatusExecuted  OrderStatus = "EXECUTED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusTimeout   OrderStatus = "TIMEOUT"
)

// Broker-side order states observados durante el polling.
// Mapean 1:1 los estados que reporta el gateway.
type BrokerOrderState string

const (
	BrokerFilled     BrokerOrderState = "Filled"
	BrokerPartFilled BrokerOrderState = "PartFilled"
	BrokerCancelled  BrokerOrderState = "Cancelled"
	BrokerInactive   BrokerOrderState = "Inactive"
	BrokerSubmitted  BrokerOrderState = "Submitted"
	BrokerPending    BrokerOrderState = "PendingSubmit"
)

// Terminal devuelve true si el broker ya no va a cambiar este estado.
func (s BrokerOrderState) Terminal() bool {
	switch s {
	case BrokerFilled, BrokerPartFilled, BrokerCancelled, BrokerInactive:
		return true
	}
	return false
}

// OrderResult es el resultado de la ejecución de un OrderIntent.
// success=false nunca es un error de sistema: es un outcome de negocio.
type OrderResult struct {
	Success    bool
	OrderID    string
	Ticker     string
	Action     Direction
	Shares     float64
	FillPrice  float64
	TotalValue float64
	Status     OrderStatus
	FailReason FailReason
	Error      string
	Timestamp  time.Time
}

// Contract es el contrato resuelto por el broker para un ticker.
type Contract struct {
	ConID    int64
	Symbol   string
	Exchange string
	Currency string
}

// OrderHandle identifica una orden viva en el broker durante el polling.
type OrderHandle struct {
	OrderID string
	ConID   int64
}

// OrderSnapshot es lo que devuelve cada poll de estado.
type OrderSnapshot struct {
	State        BrokerOrderState
	AvgFillPrice float64
}
