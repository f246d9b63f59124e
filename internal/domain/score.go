package domain

// Score es el resultado de un index scorer. Distingue un valor calculado
// de un fallback neutro: ambos pueden valer 0.5, pero el fallback lleva
// la razón del fallo para logging y tests.
type Score struct {
	Value    float64
	Fallback bool
	Reason   string
}

// Computed construye un Score calculado, clampeado a [0,1].
func Computed(v float64) Score {
	return Score{Value: Clamp01(v)}
}

// Neutral construye un Score de fallback con la razón del fallo.
func Neutral(v float64, reason string) Score {
	return Score{Value: Clamp01(v), Fallback: true, Reason: reason}
}

// Clamp01 limita v al intervalo [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
