package domain

// Outcome es el resultado completo de un run de la pipeline para una
// señal: el desglose de reliability, la decisión del gate y, si hubo
// orden, su resultado.
type Outcome struct {
	Signal    Signal
	Breakdown Breakdown
	// Intent está presente solo si el gate aceptó la señal.
	Intent *OrderIntent
	// Rejection está presente solo si el gate la rechazó.
	Rejection *RejectionRecord
	Result    OrderResult
}

// Accepted devuelve true si la señal pasó el gate.
func (o Outcome) Accepted() bool {
	return o.Intent != nil
}
