// Package portico implements the domain.ProcessorClient interface by
// speaking the processor's Portico-style JSON API over HTTP.
package portico

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/commercegate/heartland-payments/internal/domain"
)

// Codes the gateway uses for a void rejected because the batch settled.
const settledErrorCode = "batch_settled"

// Client makes authenticated HTTP requests to the processor.
type Client struct {
	secretKey     string
	serviceURL    string
	developerID   string
	versionNumber string
	httpClient    *http.Client
}

// NewClient authenticates a processor client. The secret key, developer id
// and version number ride on every request.
func NewClient(secretKey, serviceURL, developerID, versionNumber string) *Client {
	return &Client{
		secretKey:     secretKey,
		serviceURL:    serviceURL,
		developerID:   developerID,
		versionNumber: versionNumber,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// transactionRequest is the JSON body for charge and authorize calls.
type transactionRequest struct {
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Token           string `json:"token"`
	ExpMonth        string `json:"exp_month,omitempty"`
	ExpYear         string `json:"exp_year,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	RequestMultiUse bool   `json:"request_multi_use_token,omitempty"`
}

// transactionResponse is the JSON response for charge and authorize calls.
type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	MultiUseToken string `json:"multi_use_token,omitempty"`
}

// amountRequest is the JSON body for capture and refund calls.
type amountRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// gatewayError is the JSON error envelope the processor returns.
type gatewayError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Charge runs an immediate sale against a token.
func (c *Client) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	return c.transact(ctx, "charge", req)
}

// Authorize places a hold against a token without capturing funds.
func (c *Client) Authorize(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	return c.transact(ctx, "authorize", req)
}

func (c *Client) transact(ctx context.Context, txnType string, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body := transactionRequest{
		Type:            txnType,
		Amount:          req.Amount.Number.String(),
		Currency:        req.Amount.CurrencyCode,
		Token:           req.Token.Value,
		ExpMonth:        req.ExpMonth,
		ExpYear:         req.ExpYear,
		PostalCode:      req.PostalCode,
		RequestMultiUse: req.RequestMultiUseToken,
	}

	var resp transactionResponse
	if err := c.post(ctx, "/transactions", body, &resp); err != nil {
		return nil, err
	}
	return &domain.ChargeResult{
		TransactionID: resp.TransactionID,
		MultiUseToken: resp.MultiUseToken,
	}, nil
}

// Capture converts a prior authorization into a funds transfer.
func (c *Client) Capture(ctx context.Context, transactionID string, amount domain.Amount) error {
	body := amountRequest{Amount: amount.Number.String(), Currency: amount.CurrencyCode}
	return c.post(ctx, "/transactions/"+transactionID+"/capture", body, nil)
}

// Void cancels an authorization before settlement. A gateway response with
// the settled error code comes back as domain.ErrBatchSettled so the
// orchestrator can fall back to a refund.
func (c *Client) Void(ctx context.Context, transactionID string) error {
	return c.post(ctx, "/transactions/"+transactionID+"/void", struct{}{}, nil)
}

// Refund reverses funds on a settled transaction.
func (c *Client) Refund(ctx context.Context, transactionID string, amount domain.Amount) error {
	body := amountRequest{Amount: amount.Number.String(), Currency: amount.CurrencyCode}
	return c.post(ctx, "/transactions/"+transactionID+"/refund", body, nil)
}

// tokenizeRequest is the JSON body for the multi-use tokenize call.
type tokenizeRequest struct {
	Token      string `json:"token"`
	PostalCode string `json:"postal_code,omitempty"`
}

type tokenizeResponse struct {
	Token string `json:"token"`
}

// Tokenize exchanges a single-use token for a multi-use token. No monetary
// amount is attached.
func (c *Client) Tokenize(ctx context.Context, token domain.TokenEnvelope, postalCode string) (domain.TokenEnvelope, error) {
	body := tokenizeRequest{Token: token.Value, PostalCode: postalCode}
	var resp tokenizeResponse
	if err := c.post(ctx, "/tokens", body, &resp); err != nil {
		return domain.TokenEnvelope{}, err
	}
	if resp.Token == "" {
		return domain.TokenEnvelope{}, fmt.Errorf("%w: tokenize returned no token", domain.ErrGatewayDeclined)
	}
	return domain.MultiUseToken(resp.Token), nil
}

// post sends an authenticated JSON request and decodes the response into
// out when out is non-nil. Gateway rejections are translated into domain
// errors carrying the processor's message verbatim.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("X-Developer-ID", c.developerID)
	req.Header.Set("X-Version-Number", c.versionNumber)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayDeclined, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError maps a non-2xx gateway response onto the domain taxonomy.
func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var gwErr gatewayError
	if err := json.Unmarshal(raw, &gwErr); err != nil || gwErr.Error.Message == "" {
		return fmt.Errorf("%w: unexpected status %d: %s", domain.ErrGatewayDeclined, resp.StatusCode, string(raw))
	}

	if gwErr.Error.Code == settledErrorCode {
		return fmt.Errorf("%w: %s", domain.ErrBatchSettled, gwErr.Error.Message)
	}
	return fmt.Errorf("%w: %s", domain.ErrGatewayDeclined, gwErr.Error.Message)
}
