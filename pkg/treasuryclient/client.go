/**
 * @description
 * This package provides a client for the guild treasury service. It exposes
 * the vault primitives (withdraw/deposit against a guild's shared balance)
 * and the secondary per-holder balance primitives used by the income-routing
 * compensating transaction. All failures map to typed sentinel errors so
 * callers can distinguish insufficient funds from an unreachable treasury.
 *
 * @dependencies
 * - bytes, context, encoding/json, net/http, time: Standard Go libraries.
 * - github.com/google/uuid: Guild and holder identifiers.
 */
package treasuryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds indicates the balance cannot cover the movement.
	ErrInsufficientFunds = errors.New("treasury: insufficient funds")
	// ErrGuildNotFound indicates the treasury has no vault for the guild.
	ErrGuildNotFound = errors.New("treasury: guild not found")
	// ErrUnavailable indicates the treasury service could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("treasury: unavailable")
)

// Client is a client for the treasury service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new treasury client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type movementRequest struct {
	Amount         int64  `json:"amount"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type movementResponse struct {
	Balance int64  `json:"balance"`
	Error   string `json:"error,omitempty"`
}

// WithdrawFromVault withdraws from a guild's shared treasury balance and
// returns the remaining balance.
func (c *Client) WithdrawFromVault(ctx context.Context, guildID uuid.UUID, amount int64, reason string) (int64, error) {
	path := fmt.Sprintf("/internal/vaults/%s/withdraw", guildID)
	return c.move(ctx, path, movementRequest{Amount: amount, Reason: reason})
}

// DepositToVault deposits into a guild's shared treasury balance and returns
// the new balance. The idempotency key makes retried deposits safe.
func (c *Client) DepositToVault(ctx context.Context, guildID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	path := fmt.Sprintf("/internal/vaults/%s/deposit", guildID)
	return c.move(ctx, path, movementRequest{Amount: amount, Reason: reason, IdempotencyKey: idempotencyKey})
}

// WithdrawSecondary withdraws from the per-holder secondary balance where the
// marketplace initially credits shop income.
func (c *Client) WithdrawSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason string) (int64, error) {
	path := fmt.Sprintf("/internal/balances/%s/withdraw", holderID)
	return c.move(ctx, path, movementRequest{Amount: amount, Reason: reason})
}

// DepositSecondary deposits into the per-holder secondary balance. Used to
// refund a failed income routing; the idempotency key prevents double refunds.
func (c *Client) DepositSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	path := fmt.Sprintf("/internal/balances/%s/deposit", holderID)
	return c.move(ctx, path, movementRequest{Amount: amount, Reason: reason, IdempotencyKey: idempotencyKey})
}

func (c *Client) move(ctx context.Context, path string, payload movementRequest) (int64, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("treasury base url is empty: %w", ErrUnavailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("treasury request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed movementResponse
	if len(raw) > 0 {
		// A failed decode of an error body still falls through to the
		// status-code mapping below.
		_ = json.Unmarshal(raw, &parsed)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return parsed.Balance, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return 0, ErrInsufficientFunds
	case resp.StatusCode == http.StatusNotFound:
		return 0, ErrGuildNotFound
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("treasury returned %d: %w", resp.StatusCode, ErrUnavailable)
	default:
		if parsed.Error != "" {
			return 0, fmt.Errorf("treasury rejected request: %s", parsed.Error)
		}
		return 0, fmt.Errorf("treasury returned unexpected status %d", resp.StatusCode)
	}
}
