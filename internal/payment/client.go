// Package payment is the HTTP client for the external payment gateway. The
// state machine only branches on success or failure; nothing of the gateway's
// protocol leaks past this package.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/app"
	"github.com/pedalpost/rental-api/internal/domain"
)

const requestTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type captureRequest struct {
	Amount string `json:"amount"`
	Token  string `json:"token"`
}

type captureResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
}

func (c *Client) Capture(ctx context.Context, amount decimal.Decimal, token string) (app.PaymentResult, error) {
	body, err := json.Marshal(captureRequest{
		Amount: amount.StringFixed(2),
		Token:  token,
	})
	if err != nil {
		return app.PaymentResult{}, fmt.Errorf("marshal capture request: %w", err)
	}

	var resp captureResponse
	if err := c.post(ctx, "/capture", body, &resp); err != nil {
		return app.PaymentResult{}, err
	}
	if !resp.Success {
		return app.PaymentResult{}, domain.ErrPaymentDeclined
	}
	return app.PaymentResult{TransactionID: resp.TransactionID}, nil
}

type voidRequest struct {
	TransactionID string `json:"transaction_id"`
}

type voidResponse struct {
	Success bool `json:"success"`
}

func (c *Client) Void(ctx context.Context, transactionID string) error {
	body, err := json.Marshal(voidRequest{TransactionID: transactionID})
	if err != nil {
		return fmt.Errorf("marshal void request: %w", err)
	}

	var resp voidResponse
	if err := c.post(ctx, "/void", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &domain.DependencyError{Op: "void payment", Err: fmt.Errorf("gateway refused void of %s", transactionID)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return &domain.DependencyError{Op: "payment gateway " + path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return &domain.DependencyError{Op: "payment gateway " + path, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &domain.DependencyError{Op: "payment gateway " + path, Err: err}
	}
	return nil
}
