package ibkr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/adapters/ibkr"
	"github.com/alejandrodnm/relbot/internal/domain"
)

func TestSimResolvesEquitySymbols(t *testing.T) {
	sim := ibkr.NewSim()

	contract, err := sim.ResolveContract(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", contract.Symbol)
	assert.NotZero(t, contract.ConID)

	// El conid es estable por símbolo
	again, err := sim.ResolveContract(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, contract.ConID, again.ConID)
}

func TestSimRejectsImplausibleSymbols(t *testing.T) {
	sim := ibkr.NewSim()

	for _, ticker := range []string{"", "TOOLONGG", "BRK.B", "123"} {
		_, err := sim.ResolveContract(context.Background(), ticker)
		require.Error(t, err, "ticker %q", ticker)
		assert.True(t, errors.Is(err, domain.ErrContractNotFound))
	}
}

func TestSimOrderFillsAfterConfiguredPolls(t *testing.T) {
	sim := ibkr.NewSim()
	sim.FillAfterPolls = 2

	assert.True(t, sim.IsConnected(context.Background()))

	contract, err := sim.ResolveContract(context.Background(), "AAPL")
	require.NoError(t, err)
	handle, err := sim.SubmitMarketOrder(context.Background(), contract, domain.DirectionBuy, 100)
	require.NoError(t, err)
	require.NotEmpty(t, handle.OrderID)

	for i := 0; i < 2; i++ {
		snap, err := sim.PollStatus(context.Background(), handle)
		require.NoError(t, err)
		assert.Equal(t, domain.BrokerSubmitted, snap.State)
	}

	snap, err := sim.PollStatus(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.BrokerFilled, snap.State)
}

func TestSimUnknownOrderPollErrors(t *testing.T) {
	sim := ibkr.NewSim()
	_, err := sim.PollStatus(context.Background(), domain.OrderHandle{OrderID: "ghost"})
	assert.Error(t, err)
}
