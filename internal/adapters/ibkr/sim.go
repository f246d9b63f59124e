package ibkr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Sim is an in-process broker for dry runs: no gateway, no money.
// Orders fill after a couple of status polls, which exercises the same
// polling path the real client goes through.
type Sim struct {
	mu     sync.Mutex
	conIDs map[string]int64
	nextID int64
	polls  map[string]int

	// FillAfterPolls controls how many polls an order stays Submitted
	// before filling. Zero fills on the first poll.
	FillAfterPolls int
}

// NewSim creates a simulated broker session.
func NewSim() *Sim {
	return &Sim{
		conIDs:         make(map[string]int64),
		nextID:         1000,
		polls:          make(map[string]int),
		FillAfterPolls: 2,
	}
}

// IsConnected always reports true: the simulated session cannot drop.
func (s *Sim) IsConnected(context.Context) bool { return true }

// ResolveContract accepts any plausible equity symbol (1-6 letters) and
// assigns it a stable synthetic conid.
func (s *Sim) ResolveContract(_ context.Context, ticker string) (domain.Contract, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if !plausibleSymbol(symbol) {
		return domain.Contract{}, fmt.Errorf("sim resolve %q: %w", ticker, domain.ErrContractNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.conIDs[symbol]
	if !ok {
		s.nextID++
		id = s.nextID
		s.conIDs[symbol] = id
	}
	return domain.Contract{ConID: id, Symbol: symbol, Exchange: "SMART", Currency: "USD"}, nil
}

// SubmitMarketOrder registers a simulated order and returns its handle.
func (s *Sim) SubmitMarketOrder(_ context.Context, contract domain.Contract, action domain.Direction, qty float64) (domain.OrderHandle, error) {
	orderID := uuid.New().String()

	s.mu.Lock()
	s.polls[orderID] = 0
	s.mu.Unlock()

	slog.Info("simulated order submitted", "ticker", contract.Symbol, "action", action, "qty", qty, "order_id", orderID)
	return domain.OrderHandle{OrderID: orderID, ConID: contract.ConID}, nil
}

// PollStatus reports Submitted until the configured poll count passes,
// then Filled. Fill price zero lets the caller fall back to the signal
// entry price.
func (s *Sim) PollStatus(_ context.Context, handle domain.OrderHandle) (domain.OrderSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, ok := s.polls[handle.OrderID]
	if !ok {
		return domain.OrderSnapshot{}, fmt.Errorf("sim poll: unknown order %s", handle.OrderID)
	}
	s.polls[handle.OrderID] = count + 1

	if count < s.FillAfterPolls {
		return domain.OrderSnapshot{State: domain.BrokerSubmitted}, nil
	}
	return domain.OrderSnapshot{State: domain.BrokerFilled}, nil
}

func plausibleSymbol(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > 6 {
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
