package mollie

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Processor is the subset of the Mollie API this service calls.
type Processor interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*Payment, string, error)
	FetchPayment(ctx context.Context, mollieID string) (*Payment, error)
}

type Config struct {
	APIKey  string
	BaseURL string
}

// Client talks to the Mollie v2 API.
type Client struct {
	cfg    Config
	create *http.Client // payment creation, 30s
	fetch  *http.Client // payment lookup, 20s
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mollie.com/v2"
	}
	return &Client{
		cfg:    cfg,
		create: &http.Client{Timeout: 30 * time.Second},
		fetch:  &http.Client{Timeout: 20 * time.Second},
	}
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Payment is the normalized view of a Mollie payment response. Raw keeps the
// full untyped payload for fields the local schema does not model.
type Payment struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	Amount      Amount                 `json:"amount"`
	Description string                 `json:"description"`
	CheckoutURL string                 `json:"checkout_url"`
	Raw         map[string]interface{} `json:"raw"`
}

type CreateRequest struct {
	Amount         string // e.g. "10.00"
	Currency       string
	Description    string
	RedirectURL    string
	IdempotencyKey string // generated when empty
	Metadata       map[string]interface{}
}

// wirePayment picks the typed fields out of a Mollie payment payload.
type wirePayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
	Links       struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

// CreatePayment creates a payment at Mollie and returns the normalized
// response plus the idempotency key that was sent. When the caller supplies no
// key a fresh UUID is used, so a replayed call is safe against double charges.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*Payment, string, error) {
	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	description := req.Description
	if description == "" {
		description = "Payment"
	}
	payload := map[string]interface{}{
		"amount":      Amount{Value: req.Amount, Currency: currency},
		"description": description,
		"redirectUrl": req.RedirectURL,
	}
	if req.Metadata != nil {
		payload["metadata"] = req.Metadata
	}
	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.New().String()
	}

	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Idempotency-Key", idemKey)

	resp, err := c.create.Do(httpReq)
	if err != nil {
		return nil, "", &TransportError{Op: "create payment", Err: err}
	}
	defer resp.Body.Close()
	p, err := decodePayment(resp)
	if err != nil {
		return nil, "", err
	}
	return p, idemKey, nil
}

// FetchPayment retrieves the current state of a payment. Read-only, so no
// idempotency token is attached.
func (c *Client) FetchPayment(ctx context.Context, mollieID string) (*Payment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/payments/"+mollieID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.fetch.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "fetch payment " + mollieID, Err: err}
	}
	defer resp.Body.Close()
	return decodePayment(resp)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func decodePayment(resp *http.Response) (*Payment, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var wire wirePayment
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	return &Payment{
		ID:          wire.ID,
		Status:      wire.Status,
		Amount:      wire.Amount,
		Description: wire.Description,
		CheckoutURL: wire.Links.Checkout.Href,
		Raw:         raw,
	}, nil
}
