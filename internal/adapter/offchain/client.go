// Package offchain is the HTTP client for the financer API. It is the off-chain
// ledger used by the CLI flows and the read side of the dashboards.
package offchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/usecase/portfolio"
	"invoice-financer/pkg/id"
)

var (
	_ vault.Ledger       = (*Client)(nil)
	_ loan.StatusUpdater = (*Client)(nil)
	_ portfolio.Source   = (*Client)(nil)
)

const defaultTimeout = 10 * time.Second

// Config controls how the client reaches the API.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Actor is the wallet address sent as Ax-Actor on mutating calls.
	Actor string
}

type Client struct {
	baseURL string
	actor   string
	http    *http.Client
	now     func() time.Time
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("offchain: status %d: %s", e.Status, e.Message)
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("offchain: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		actor:   cfg.Actor,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}, nil
}

// WithActor returns a copy of c that identifies as actor on mutating calls.
func (c *Client) WithActor(actor string) *Client {
	cp := *c
	cp.actor = actor
	return &cp
}

type envelope[T any] struct {
	Data  T   `json:"data"`
	Count int `json:"count,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) RecordDeposit(ctx context.Context, vaultAddress string, rec vault.DepositRecord) error {
	return c.do(ctx, http.MethodPost, "/vaults/"+url.PathEscape(vaultAddress)+"/deposit", rec, nil)
}

func (c *Client) RecordRedemption(ctx context.Context, vaultAddress string, rec vault.RedemptionRecord) error {
	return c.do(ctx, http.MethodPost, "/vaults/"+url.PathEscape(vaultAddress)+"/redemptions", rec, nil)
}

func (c *Client) RecordRepayment(ctx context.Context, vaultAddress string, rec vault.RepaymentRecord) error {
	return c.do(ctx, http.MethodPost, "/vaults/"+url.PathEscape(vaultAddress)+"/repayments", rec, nil)
}

func (c *Client) UpdateStatus(ctx context.Context, loanRequestID uint64, status loan.Status) error {
	body := map[string]loan.Status{"status": status}
	return c.do(ctx, http.MethodPatch, "/loan-requests/"+strconv.FormatUint(loanRequestID, 10)+"/status", body, nil)
}

func (c *Client) LenderPortfolio(ctx context.Context, lenderAddress string) ([]vault.PortfolioItem, error) {
	var env envelope[[]vault.PortfolioItem]
	if err := c.do(ctx, http.MethodGet, "/vaults/lender/"+url.PathEscape(lenderAddress), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) BorrowerLoans(ctx context.Context, borrowerAddress string) ([]vault.LoanWithVault, error) {
	var env envelope[[]vault.LoanWithVault]
	if err := c.do(ctx, http.MethodGet, "/loan-requests/borrower/"+url.PathEscape(borrowerAddress), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) ListVaults(ctx context.Context) ([]vault.LoanWithVault, error) {
	var env envelope[[]vault.LoanWithVault]
	if err := c.do(ctx, http.MethodGet, "/vaults", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) LoansByStatus(ctx context.Context, status loan.Status) ([]vault.LoanWithVault, error) {
	q := url.Values{"status": {string(status)}}
	var env envelope[[]vault.LoanWithVault]
	if err := c.do(ctx, http.MethodGet, "/loan-requests?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("offchain: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("offchain: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Ax-Request-Id", id.NewRequestID())
		req.Header.Set("Ax-Request-At", strconv.FormatInt(c.now().UnixMilli(), 10))
		if c.actor != "" {
			req.Header.Set("Ax-Actor", c.actor)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("offchain: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var eb errorBody
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("offchain: decode response: %w", err)
	}
	return nil
}
