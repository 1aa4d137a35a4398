package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
)

var (
	ErrGatewayUnavailable = errors.New("disbursement gateway unavailable")
	ErrGatewayRejected    = errors.New("disbursement rejected by gateway")
)

type DisbursementStatus string

const (
	DisbursementStatusPending   DisbursementStatus = "PENDING"
	DisbursementStatusCompleted DisbursementStatus = "COMPLETED"
	DisbursementStatusFailed    DisbursementStatus = "FAILED"
)

type DisbursementRequest struct {
	ExternalID    string `json:"external_id"`
	Amount        int64  `json:"amount"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_holder_number"`
	AccountName   string `json:"account_holder_name"`
	Description   string `json:"description,omitempty"`
}

type DisbursementResponse struct {
	ID         string             `json:"id"`
	ExternalID string             `json:"external_id"`
	Amount     int64              `json:"amount"`
	Status     DisbursementStatus `json:"status"`
	Message    string             `json:"message,omitempty"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// DisbursementClient talks to the external payout gateway. Calls are
// bounded by the configured timeout and must never run while a wallet
// or payout row lock is held.
type DisbursementClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewDisbursementClient(baseURL, apiKey string, timeout time.Duration) *DisbursementClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DisbursementClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// CreateDisbursement submits a payout. The ExternalID doubles as the
// idempotency key: the gateway collapses retries of the same id.
func (c *DisbursementClient) CreateDisbursement(ctx context.Context, req DisbursementRequest) (*DisbursementResponse, error) {
	started := time.Now()
	var out DisbursementResponse
	status, err := c.postJSON(ctx, "/v1/disbursements", req.ExternalID, req, &out)
	prom.ObserveHistogram(prom.SystemPayout, prom.MetricDisbursementCallDuration, time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	switch {
	case status >= 200 && status < 300:
		return &out, nil
	case status >= 400 && status < 500:
		logger.Warn("disbursement rejected",
			"external_id", req.ExternalID,
			"status", status,
			"message", out.Message)
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, out.Message)
	default:
		return nil, fmt.Errorf("%w: http %d", ErrGatewayUnavailable, status)
	}
}

// GetBalance reads the platform's balance at the gateway.
func (c *DisbursementClient) GetBalance(ctx context.Context) (int64, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/v1/balance")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if err := c.do(ctx, req, resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("%w: http %d", ErrGatewayUnavailable, resp.StatusCode())
	}

	var out BalanceResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, fmt.Errorf("%w: bad balance payload: %v", ErrGatewayUnavailable, err)
	}
	return out.Balance, nil
}

func (c *DisbursementClient) postJSON(ctx context.Context, path, idempotencyKey string, body, dst any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
	req.SetBodyRaw(payload)

	if err := c.do(ctx, req, resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if len(resp.Body()) > 0 && dst != nil {
		if err := json.Unmarshal(resp.Body(), dst); err != nil {
			return resp.StatusCode(), fmt.Errorf("%w: bad response payload: %v", ErrGatewayUnavailable, err)
		}
	}
	return resp.StatusCode(), nil
}

func (c *DisbursementClient) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.client.DoDeadline(req, resp, deadline)
}
