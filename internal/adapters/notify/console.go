package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Console implementa ports.Notifier escribiendo el resultado de cada
// señal a stdout: una línea compacta por defecto, o una tabla con el
// breakdown completo en modo table.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Outcome imprime el resultado de una señal procesada.
func (c *Console) Outcome(_ context.Context, outcome domain.Outcome) error {
	if c.table {
		c.printFull(outcome)
	} else {
		c.printCompact(outcome)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(outcome domain.Outcome) {
	now := time.Now().Format("15:04:05")
	sig := outcome.Signal
	bd := outcome.Breakdown

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s @%.2f rel:%.3f", now, sig.Ticker, sig.Direction, sig.EntryPrice, bd.Reliability)

	if outcome.Result.Success {
		fmt.Fprintf(&sb, " | OPENED %.0f shares @%.2f ($%.2f) order:%s",
			outcome.Result.Shares, outcome.Result.FillPrice, outcome.Result.TotalValue,
			shortID(outcome.Result.OrderID))
	} else if outcome.Rejection != nil {
		fmt.Fprintf(&sb, " | REJECTED: %s", outcome.Rejection.Reason)
	} else {
		fmt.Fprintf(&sb, " | FAILED [%s]: %s", outcome.Result.FailReason, outcome.Result.Error)
	}

	if fallbacks := fallbackLabels(bd); len(fallbacks) > 0 {
		fmt.Fprintf(&sb, " | neutral:%s", strings.Join(fallbacks, ","))
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla con el breakdown de reliability.
func (c *Console) printFull(outcome domain.Outcome) {
	sig := outcome.Signal
	bd := outcome.Breakdown

	verdict := "REJECTED"
	if outcome.Result.Success {
		verdict = "OPENED"
	} else if outcome.Rejection == nil {
		verdict = "FAILED"
	}

	fmt.Fprintf(c.out, "\n[%s] %s %s @%.2f sl:%.2f tp:%.2f → %s\n",
		time.Now().Format("15:04:05"), sig.Ticker, sig.Direction,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, verdict)

	table := tablewriter.NewWriter(c.out)
	table.Header("Index", "Score", "Weight", "Fallback")
	table.Append("probability", fmt.Sprintf("%.3f", bd.Probability.Value), fmt.Sprintf("%.2f", bd.Weights.Probability), fallbackCell(bd.Probability))
	table.Append("plausibility", fmt.Sprintf("%.3f", bd.Plausibility.Value), fmt.Sprintf("%.2f", bd.Weights.Plausibility), fallbackCell(bd.Plausibility))
	table.Append("credibility", fmt.Sprintf("%.3f", bd.Credibility.Value), fmt.Sprintf("%.2f", bd.Weights.Credibility), fallbackCell(bd.Credibility))
	table.Append("possibility", fmt.Sprintf("%.3f", bd.Possibility.Value), fmt.Sprintf("%.2f", bd.Weights.Possibility), fallbackCell(bd.Possibility))
	table.Append("reliability", fmt.Sprintf("%.3f", bd.Reliability), "", "")
	table.Render()

	switch {
	case outcome.Result.Success:
		fmt.Fprintf(c.out, "  position: %.0f shares @%.2f = $%.2f (order %s)\n\n",
			outcome.Result.Shares, outcome.Result.FillPrice, outcome.Result.TotalValue,
			shortID(outcome.Result.OrderID))
	case outcome.Rejection != nil:
		fmt.Fprintf(c.out, "  rejected: %s\n\n", outcome.Rejection.Reason)
	default:
		fmt.Fprintf(c.out, "  failed [%s]: %s\n\n", outcome.Result.FailReason, outcome.Result.Error)
	}
}

// fallbackLabels lista los índices que cayeron a neutral.
func fallbackLabels(bd domain.Breakdown) []string {
	var out []string
	if bd.Probability.Fallback {
		out = append(out, "Pr")
	}
	if bd.Plausibility.Fallback {
		out = append(out, "Pl")
	}
	if bd.Credibility.Fallback {
		out = append(out, "Cr")
	}
	if bd.Possibility.Fallback {
		out = append(out, "Po")
	}
	return out
}

func fallbackCell(s domain.Score) string {
	if !s.Fallback {
		return ""
	}
	return s.Reason
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
