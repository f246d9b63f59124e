package domain

import (
	"strings"
	"time"
)

// Direction es la dirección de una señal entrante.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// ParseDirection normaliza el texto del wire format a una Direction.
// Devuelve false si el valor no es BUY/SELL/HOLD.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, true
	case DirectionSell:
		return DirectionSell, true
	case DirectionHold:
		return DirectionHold, true
	}
	return "", false
}

// DefaultTimeframe es el timeframe asumido cuando la estrategia no lo envía.
const DefaultTimeframe = "15m"

// Signal es la propuesta direccional que llega de la estrategia externa.
// Inmutable una vez construida; la pipeline nunca la modifica.
type Signal struct {
	Ticker     string
	Direction  Direction
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	// Strength es el strategy_signal del wire format: fuerza [0,1]
	// basada en los indicadores de la estrategia.
	Strength   float64
	Confidence float64
	Timeframe  string
	ReceivedAt time.Time
}

// MissingFields devuelve los campos core ausentes o inválidos.
// Precios a cero o negativos cuentan como ausentes: la estrategia
// siempre manda niveles positivos en señales reales.
func (s Signal) MissingFields() []string {
	var missing []string
	if s.Ticker == "" {
		missing = append(missing, "ticker")
	}
	if s.Direction == "" {
		missing = append(missing, "direction")
	}
	if s.EntryPrice <= 0 {
		missing = append(missing, "entry_price")
	}
	if s.StopLoss <= 0 {
		missing = append(missing, "stop_loss")
	}
	if s.TakeProfit <= 0 {
		missing = append(missing, "take_profit")
	}
	return missing
}

// EffectiveTimeframe devuelve el timeframe de la señal o el default.
func (s Signal) EffectiveTimeframe() string {
	if s.Timeframe == "" {
		return DefaultTimeframe
	}
	return s.Timeframe
}
