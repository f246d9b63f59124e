package domain

import "time"

// PositionRecord es una posición abierta tras una ejecución exitosa.
// La cierra lógica externa de gestión de posiciones, fuera de esta pipeline.
type PositionRecord struct {
	ID          string
	Ticker      string
	Direction   Direction
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	Shares      float64
	OrderID     string
	OpenedAt    time.Time
	Reliability float64
}

// SignalEntry es una señal procesada tal como queda en el histórico.
type SignalEntry struct {
	Timestamp      time.Time
	Ticker         string
	Direction      Direction
	EntryPrice     float64
	StopLoss       float64
	TakeProfit     float64
	Reliability    float64
	Breakdown      Breakdown
	PositionOpened bool
	Outcome        OrderResult
}
