package ibkr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/relbot/internal/adapters/ibkr"
	"github.com/alejandrodnm/relbot/internal/domain"
)

func gatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/iserver/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"authenticated":true,"connected":true}`)
	})
	mux.HandleFunc("/iserver/secdef/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("symbol") == "AAPL" {
			fmt.Fprint(w, `[{"conid":265598,"symbol":"AAPL","description":"APPLE INC","secType":"STK"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/portfolio/accounts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"DU1234567"}]`)
	})
	mux.HandleFunc("/iserver/account/DU1234567/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"order_id":"987654"}]`)
	})
	mux.HandleFunc("/iserver/account/order/status/987654", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"order_status":"Filled","average_price":"150.25"}`)
	})
	return httptest.NewServer(mux)
}

func TestClientConnectivity(t *testing.T) {
	srv := gatewayServer(t)
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	assert.True(t, c.IsConnected(context.Background()))
}

func TestClientDisconnectedGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"authenticated":false,"connected":true}`)
	}))
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	assert.False(t, c.IsConnected(context.Background()))
}

func TestClientResolveContract(t *testing.T) {
	srv := gatewayServer(t)
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	contract, err := c.ResolveContract(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(265598), contract.ConID)
	assert.Equal(t, "AAPL", contract.Symbol)
	assert.Equal(t, "SMART", contract.Exchange)
}

func TestClientResolveUnknownTicker(t *testing.T) {
	srv := gatewayServer(t)
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	_, err := c.ResolveContract(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrContractNotFound))
}

func TestClientSubmitAndPoll(t *testing.T) {
	srv := gatewayServer(t)
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	contract := domain.Contract{ConID: 265598, Symbol: "AAPL"}

	handle, err := c.SubmitMarketOrder(context.Background(), contract, domain.DirectionBuy, 100)
	require.NoError(t, err)
	assert.Equal(t, "987654", handle.OrderID)

	snap, err := c.PollStatus(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.BrokerFilled, snap.State)
	assert.Equal(t, 150.25, snap.AvgFillPrice)
}

func TestClientSubmitConfirmsGatewayPrompt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/portfolio/accounts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"DU1"}]`)
	})
	mux.HandleFunc("/iserver/account/DU1/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"reply-1","message":["price cap warning"]}]`)
	})
	mux.HandleFunc("/iserver/reply/reply-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `[{"order_id":"111"}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	handle, err := c.SubmitMarketOrder(context.Background(), domain.Contract{ConID: 1, Symbol: "AAPL"}, domain.DirectionBuy, 10)
	require.NoError(t, err)
	assert.Equal(t, "111", handle.OrderID)
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := ibkr.NewClient(srv.URL)
	for i := 0; i < 6; i++ {
		_, err := c.ResolveContract(context.Background(), "AAPL")
		require.Error(t, err)
	}

	// Con el breaker abierto las llamadas fallan rápido y se mapean a
	// la desconexión del broker.
	_, err := c.ResolveContract(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBrokerDisconnected))
}

func TestClientPollStatusMapping(t *testing.T) {
	statuses := map[string]domain.BrokerOrderState{
		"Filled":          domain.BrokerFilled,
		"PartiallyFilled": domain.BrokerPartFilled,
		"Cancelled":       domain.BrokerCancelled,
		"Inactive":        domain.BrokerInactive,
		"PendingSubmit":   domain.BrokerPending,
		"Submitted":       domain.BrokerSubmitted,
	}

	for raw, want := range statuses {
		raw, want := raw, want
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"order_status":%q,"average_price":"0"}`, raw)
		}))

		c := ibkr.NewClient(srv.URL)
		snap, err := c.PollStatus(context.Background(), domain.OrderHandle{OrderID: "1"})
		require.NoError(t, err)
		assert.Equal(t, want, snap.State, "status %s", raw)
		srv.Close()
	}
}
