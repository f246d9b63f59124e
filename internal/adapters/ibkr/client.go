package ibkr

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Client talks to the IB Client Portal REST gateway. One instance is
// one broker session; the pipeline serializes order flow per ticker.
//
// Every gateway call goes through a circuit breaker: once the gateway
// starts failing consecutively the breaker opens and calls fail fast
// with domain.ErrBrokerDisconnected until the probe succeeds again.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker

	mu        sync.Mutex
	accountID string
}

// NewClient builds the client against the gateway base URL
// (https://host:port/v1/api). The gateway serves a self-signed cert on
// localhost, so TLS verification is disabled for it.
func NewClient(baseURL string) *Client {
	settings := gobreaker.Settings{
		Name:    "ibkr-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("broker circuit state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type authStatus struct {
	Authenticated bool `json:"authenticated"`
	Connected     bool `json:"connected"`
}

type account struct {
	ID string `json:"id"`
}

type secdefResult struct {
	ConID       int64  `json:"conid"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	SecType     string `json:"secType"`
}

type orderReply struct {
	OrderID string `json:"order_id"`
	// A confirmation prompt instead of an order id means the gateway is
	// waiting for a /reply round-trip.
	ID      string   `json:"id"`
	Message []string `json:"message"`
}

type orderStatusReply struct {
	OrderStatus  string  `json:"order_status"`
	AvgFillPrice float64 `json:"average_price,string"`
}

// IsConnected reports whether the gateway session is authenticated.
// Any transport failure (including an open breaker) reads as not
// connected.
func (c *Client) IsConnected(ctx context.Context) bool {
	out, err := c.breaker.Execute(func() (any, error) {
		var status authStatus
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&status).
			Post("/iserver/auth/status")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return status, nil
	})
	if err != nil {
		slog.Debug("broker connectivity check failed", "err", err)
		return false
	}
	status := out.(authStatus)
	return status.Authenticated && status.Connected
}

// ResolveContract resolves a ticker to its stock contract. Returns
// domain.ErrContractNotFound when the gateway knows no STK conid for
// the symbol.
func (c *Client) ResolveContract(ctx context.Context, ticker string) (domain.Contract, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		var results []secdefResult
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"symbol": ticker, "secType": "STK"}).
			SetResult(&results).
			Get("/iserver/secdef/search")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return results, nil
	})
	if err != nil {
		return domain.Contract{}, fmt.Errorf("resolve %s: %w", ticker, domain.ErrBrokerDisconnected)
	}

	for _, r := range out.([]secdefResult) {
		if r.SecType != "" && r.SecType != "STK" {
			continue
		}
		if !strings.EqualFold(r.Symbol, ticker) {
			continue
		}
		return domain.Contract{
			ConID:    r.ConID,
			Symbol:   strings.ToUpper(r.Symbol),
			Exchange: "SMART",
			Currency: "USD",
		}, nil
	}
	return domain.Contract{}, fmt.Errorf("resolve %s: %w", ticker, domain.ErrContractNotFound)
}

// SubmitMarketOrder places a market DAY order for the contract.
func (c *Client) SubmitMarketOrder(ctx context.Context, contract domain.Contract, action domain.Direction, qty float64) (domain.OrderHandle, error) {
	accountID, err := c.account(ctx)
	if err != nil {
		return domain.OrderHandle{}, err
	}

	body := map[string]any{
		"orders": []map[string]any{{
			"conid":     contract.ConID,
			"orderType": "MKT",
			"side":      string(action),
			"quantity":  qty,
			"tif":       "DAY",
		}},
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var replies []orderReply
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&replies).
			Post(fmt.Sprintf("/iserver/account/%s/orders", accountID))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return replies, nil
	})
	if err != nil {
		return domain.OrderHandle{}, fmt.Errorf("submit order %s: %w", contract.Symbol, domain.ErrBrokerDisconnected)
	}

	replies := out.([]orderReply)
	if len(replies) == 0 {
		return domain.OrderHandle{}, fmt.Errorf("submit order %s: empty reply", contract.Symbol)
	}

	reply := replies[0]
	// Precautionary confirmations (price caps etc) need a /reply ack
	// before the order is live.
	if reply.OrderID == "" && reply.ID != "" {
		reply, err = c.confirm(ctx, reply.ID)
		if err != nil {
			return domain.OrderHandle{}, err
		}
	}
	if reply.OrderID == "" {
		return domain.OrderHandle{}, fmt.Errorf("submit order %s: no order id in reply", contract.Symbol)
	}

	slog.Info("order submitted", "ticker", contract.Symbol, "action", action, "qty", qty, "order_id", reply.OrderID)
	return domain.OrderHandle{OrderID: reply.OrderID, ConID: contract.ConID}, nil
}

// PollStatus reads the order's current state.
func (c *Client) PollStatus(ctx context.Context, handle domain.OrderHandle) (domain.OrderSnapshot, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		var status orderStatusReply
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&status).
			Get("/iserver/account/order/status/" + handle.OrderID)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return status, nil
	})
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("poll %s: %w", handle.OrderID, err)
	}

	status := out.(orderStatusReply)
	return domain.OrderSnapshot{
		State:        mapOrderState(status.OrderStatus),
		AvgFillPrice: status.AvgFillPrice,
	}, nil
}

// confirm acknowledges a gateway confirmation prompt and returns the
// resulting order reply.
func (c *Client) confirm(ctx context.Context, replyID string) (orderReply, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		var replies []orderReply
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]any{"confirmed": true}).
			SetResult(&replies).
			Post("/iserver/reply/" + replyID)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return replies, nil
	})
	if err != nil {
		return orderReply{}, fmt.Errorf("confirm order: %w", domain.ErrBrokerDisconnected)
	}
	replies := out.([]orderReply)
	if len(replies) == 0 {
		return orderReply{}, fmt.Errorf("confirm order: empty reply")
	}
	return replies[0], nil
}

// account returns the cached brokerage account id, fetching it on first
// use.
func (c *Client) account(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountID != "" {
		return c.accountID, nil
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var accounts []account
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&accounts).
			Get("/portfolio/accounts")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return accounts, nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch accounts: %w", domain.ErrBrokerDisconnected)
	}

	accounts := out.([]account)
	if len(accounts) == 0 {
		return "", fmt.Errorf("fetch accounts: none available")
	}
	c.accountID = accounts[0].ID
	return c.accountID, nil
}

// mapOrderState normalizes the gateway's status strings.
func mapOrderState(raw string) domain.BrokerOrderState {
	switch strings.ToLower(strings.ReplaceAll(raw, " ", "")) {
	case "filled":
		return domain.BrokerFilled
	case "partiallyfilled", "partfilled":
		return domain.BrokerPartFilled
	case "cancelled", "canceled":
		return domain.BrokerCancelled
	case "inactive":
		return domain.BrokerInactive
	case "pendingsubmit", "presubmitted":
		return domain.BrokerPending
	default:
		return domain.BrokerSubmitted
	}
}
