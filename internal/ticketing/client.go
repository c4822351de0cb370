package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

const (
	defaultTimeout          = 10 * time.Second
	errorBodyReadLimit      = 1024
	responseBodyReadLimit   = 4 << 20
	envelopeBalances        = "balances"
	envelopeTickets         = "tickets"
	envelopeTransactions    = "transactions"
	envelopeComplementaries = "complementaryTickets"
)

var errBaseURLRequired = errors.New("ticketing base url is required")

// Client talks to the remote ticketing and payment API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sets the bearer credential sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout overrides the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient builds the API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GetEvent loads the live event snapshot, including ticket inventory.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	var body struct {
		Event *Event `json:"event"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, &body); err != nil {
		return nil, err
	}
	if body.Event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProtocol, "event response missing event")
	}
	return body.Event, nil
}

// InitiatePayment starts a charge and returns its ticket group.
func (c *Client) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	var resp InitiatePaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/payments/initiate", req, &resp); err != nil {
		return nil, err
	}
	resp.TicketGroup = strings.TrimSpace(resp.TicketGroup)
	if resp.TicketGroup == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProtocol, "payment initiation response did not include a ticket group")
	}
	return &resp, nil
}

// PaymentStatus polls the outcome of a ticket group.
func (c *Client) PaymentStatus(ctx context.Context, ticketGroup string) (*PaymentStatus, error) {
	ticketGroup = strings.TrimSpace(ticketGroup)
	if ticketGroup == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket group is required")
	}
	var status PaymentStatus
	if err := c.doJSON(ctx, http.MethodGet, "/payments/status/"+url.PathEscape(ticketGroup), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// EventBalances loads the balance summary for a company event. A response
// without a balances key yields nil.
func (c *Client) EventBalances(ctx context.Context, companyID, eventID string) (*Balances, error) {
	return getEnvelope[*Balances](ctx, c, companyID, eventID, "balances", envelopeBalances)
}

func (c *Client) EventTickets(ctx context.Context, companyID, eventID string) ([]SoldTicket, error) {
	return getEnvelope[[]SoldTicket](ctx, c, companyID, eventID, "tickets", envelopeTickets)
}

func (c *Client) EventTransactions(ctx context.Context, companyID, eventID string) ([]Transaction, error) {
	return getEnvelope[[]Transaction](ctx, c, companyID, eventID, "transactions", envelopeTransactions)
}

func (c *Client) EventComplementaryTickets(ctx context.Context, companyID, eventID string) ([]ComplementaryTicket, error) {
	return getEnvelope[[]ComplementaryTicket](ctx, c, companyID, eventID, "complementary", envelopeComplementaries)
}

func getEnvelope[T any](ctx context.Context, c *Client, companyID, eventID, segment, key string) (T, error) {
	var zero T
	companyID = strings.TrimSpace(companyID)
	eventID = strings.TrimSpace(eventID)
	if companyID == "" || eventID == "" {
		return zero, pkgerrors.New(pkgerrors.CodeValidation, "company id and event id are required")
	}
	path := fmt.Sprintf("/companies/%s/events/%s/%s", url.PathEscape(companyID), url.PathEscape(eventID), segment)

	var envelope map[string]json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return zero, err
	}
	raw, ok := envelope[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, pkgerrors.Wrap(pkgerrors.CodeProtocol, err, fmt.Sprintf("decode %s response", segment))
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "ticketing client not configured")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ticketing service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "resource not found on ticketing service")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, fmt.Sprintf("ticketing service returned status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProtocol, err, "ticketing service returned an unreadable response")
	}
	return nil
}
