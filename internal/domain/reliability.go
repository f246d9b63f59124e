package domain

import (
	"fmt"
	"math"
)

// weightTolerance es el margen permitido en la suma de pesos.
const weightTolerance = 0.01

// Weights son los pesos de los cuatro índices de incertidumbre.
// Se validan una sola vez al arrancar, nunca por señal.
type Weights struct {
	Probability  float64 `yaml:"probability" json:"probability"`
	Plausibility float64 `yaml:"plausibility" json:"plausibility"`
	Credibility  float64 `yaml:"credibility" json:"credibility"`
	Possibility  float64 `yaml:"possibility" json:"possibility"`
}

// DefaultWeights devuelve los pesos de producción.
func DefaultWeights() Weights {
	return Weights{
		Probability:  0.30,
		Plausibility: 0.25,
		Credibility:  0.25,
		Possibility:  0.20,
	}
}

// Sum devuelve la suma de los cuatro pesos.
func (w Weights) Sum() float64 {
	return w.Probability + w.Plausibility + w.Credibility + w.Possibility
}

// Validate comprueba que los pesos sumen 1.0 ± 0.01.
// Un fallo aquí es un error de configuración, no de runtime.
func (w Weights) Validate() error {
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0 ± %.2f (got %.3f)", weightTolerance, sum)
	}
	return nil
}

// Breakdown es el desglose completo de reliability para una señal.
// Se crea una vez por señal y no se muta después.
type Breakdown struct {
	Probability  Score
	Plausibility Score
	Credibility  Score
	Possibility  Score
	Weights      Weights
	Reliability  float64
}

// Aggregate combina los cuatro scores con los pesos dados:
// reliability = w1·Pr + w2·Pl + w3·Cr + w4·Po.
// Con scores en [0,1] y pesos válidos el resultado queda en [0,1]
// por convexidad de la suma ponderada.
func Aggregate(pr, pl, cr, po Score, w Weights) Breakdown {
	reliability := w.Probability*pr.Value +
		w.Plausibility*pl.Value +
		w.Credibility*cr.Value +
		w.Possibility*po.Value

	return Breakdown{
		Probability:  pr,
		Plausibility: pl,
		Credibility:  cr,
		Possibility:  po,
		Weights:      w,
		Reliability:  Clamp01(reliability),
	}
}

// NeutralBreakdown es la red de seguridad externa: si un scorer escapa
// de su propio contrato de fallback, la pipeline sustituye todos los
// componentes por 0.5 en vez de fallar.
func NeutralBreakdown(w Weights, reason string) Breakdown {
	n := Neutral(0.5, reason)
	return Aggregate(n, n, n, n, w)
}
