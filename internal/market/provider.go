// Package market fetches monthly market yields from an HTTP JSON endpoint.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const defaultTimeout = 10 * time.Second

// HTTPProvider implements ports.YieldProvider against
// GET {base}/yields?month=YYYY-MM, answering
//
//	{"month":"2025-06","yields":[{"instrument":"BTP10Y","rate":"3.85"}]}
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

type yieldsResponse struct {
	Month  string `json:"month"`
	Yields []struct {
		Instrument string          `json:"instrument"`
		Rate       decimal.Decimal `json:"rate"`
	} `json:"yields"`
}

// NewHTTPProvider returns a provider for baseURL. A nil client gets a
// default one with a short timeout.
func NewHTTPProvider(baseURL string, client *http.Client) (*HTTPProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid market yield url %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

func (p *HTTPProvider) FetchYields(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	endpoint := p.baseURL + "/yields?" + url.Values{"month": {month.String()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request yields: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yield provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload yieldsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode yields: %w", err)
	}
	if payload.Month != "" && payload.Month != month.String() {
		return nil, fmt.Errorf("yield provider answered for %s, asked %s", payload.Month, month)
	}

	out := make([]core.MarketYield, 0, len(payload.Yields))
	for _, y := range payload.Yields {
		if strings.TrimSpace(y.Instrument) == "" {
			continue
		}
		out = append(out, core.MarketYield{Month: month, Instrument: y.Instrument, Rate: y.Rate})
	}
	return out, nil
}
