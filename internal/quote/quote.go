package quote

import (
	"context"       // Request-scoped cancellation
	"encoding/json" // Response decoding
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"net/http"      // HTTP client
	"net/url"       // Path escaping
	"strings"       // Symbol normalization
	"time"          // Client timeout

	"github.com/shopspring/decimal" // Exact decimal prices
)

// ErrNotFound is returned when the provider does not know the symbol.
var ErrNotFound = errors.New("stock does not exist")

// Quote is a live price for one ticker symbol.
type Quote struct {
	Symbol string          `json:"symbol"` // Ticker symbol, uppercase
	Name   string          `json:"name"`   // Company name
	Price  decimal.Decimal `json:"price"`  // Current unit price
}

// Provider resolves a ticker symbol to a live quote.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// APIClient is a Provider backed by an IEX-style HTTP quote endpoint:
// GET {base}/stock/{symbol}/quote?token={key} returning
// {"symbol": ..., "companyName": ..., "latestPrice": ...}.
type APIClient struct {
	baseURL string       // Endpoint base URL, no trailing slash
	apiKey  string       // API token passed as query parameter
	client  *http.Client // HTTP client with timeout
}

// NewAPIClient builds a quote client for the given endpoint and API key.
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup fetches the current quote for symbol. Symbols are uppercased
// before the request so callers and storage agree on identity.
func (c *APIClient) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNotFound
	}

	endpoint := c.baseURL + "/stock/" + url.PathEscape(symbol) + "/quote?token=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote lookup %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote lookup %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var body struct {
		Symbol      string          `json:"symbol"`      // Ticker symbol
		CompanyName string          `json:"companyName"` // Company name
		LatestPrice decimal.Decimal `json:"latestPrice"` // Current price
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("quote decode %s: %w", symbol, err)
	}
	return &Quote{
		Symbol: strings.ToUpper(body.Symbol),
		Name:   body.CompanyName,
		Price:  body.LatestPrice,
	}, nil
}
