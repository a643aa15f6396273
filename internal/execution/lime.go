package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pairsbot-go/internal/exchange"
)

const placeOrderPath = "/orders/place"

type placeOrderRequest struct {
	AccountNumber string `json:"account_number"`
	Symbol        string `json:"symbol"`
	Quantity      int    `json:"quantity"`
	Side          Side   `json:"side"`
	OrderType     string `json:"order_type"`
	TimeInForce   string `json:"time_in_force"`
	Exchange      string `json:"exchange"`
}

type placeOrderResponse struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// LimeSubmitter places day market orders through the broker REST API.
type LimeSubmitter struct {
	session *exchange.Session
	account string
}

// NewLimeSubmitter binds orders to an account on an authenticated session.
func NewLimeSubmitter(session *exchange.Session, account string) *LimeSubmitter {
	return &LimeSubmitter{session: session, account: account}
}

// Submit implements Submitter. Non-200 responses and explicit `"success": false` bodies are failures.
func (l *LimeSubmitter) Submit(ctx context.Context, order Order) error {
	body, err := json.Marshal(placeOrderRequest{
		AccountNumber: l.account,
		Symbol:        order.Symbol,
		Quantity:      order.Qty,
		Side:          order.Side,
		OrderType:     "market",
		TimeInForce:   "day",
		Exchange:      "auto",
	})
	if err != nil {
		return &OrderError{Order: order, Err: fmt.Errorf("encode order: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.session.URL(placeOrderPath), bytes.NewReader(body))
	if err != nil {
		return &OrderError{Order: order, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.session.Client().Do(req)
	if err != nil {
		return &OrderError{Order: order, Err: fmt.Errorf("http do: %w", err)}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return &OrderError{Order: order, Status: resp.StatusCode, Err: fmt.Errorf("rejected: %s", bytes.TrimSpace(raw))}
	}

	var out placeOrderResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &out) == nil && out.Success != nil && !*out.Success {
		return &OrderError{Order: order, Status: resp.StatusCode, Err: errors.New(string(bytes.TrimSpace(out.Data)))}
	}
	return nil
}
