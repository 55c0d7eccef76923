package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
)

// DefaultRESTURL is the Binance public REST API base.
const DefaultRESTURL = "https://api.binance.com/api/v3"

// RESTClient fetches spot prices over the Binance REST API. It serves as
// the cold-start seed for the live cache and as the fallback when a symbol
// is missing from the stream.
type RESTClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ repository.PriceSource = (*RESTClient)(nil)

// NewRESTClient creates a client against baseURL with a bounded per-request
// timeout.
func NewRESTClient(baseURL string, timeout time.Duration, logger *slog.Logger) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type restTicker struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"lastPrice"`
	PriceChange   string `json:"priceChange"`
	ChangePercent string `json:"priceChangePercent"`
	HighPrice     string `json:"highPrice"`
	LowPrice      string `json:"lowPrice"`
	Volume        string `json:"volume"`
}

// FetchPrice returns the current USD price for a canonical token ticker.
func (c *RESTClient) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	stream, ok := StreamSymbol(symbol)
	if !ok {
		return 0, fmt.Errorf("untracked token %q", symbol)
	}

	endpoint := fmt.Sprintf("%s/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(strings.ToUpper(stream)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price request returned status %d", resp.StatusCode)
	}

	var body struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed price %q: %w", body.Price, err)
	}
	return price, nil
}

// FetchQuotes pulls the full 24h ticker list and returns quotes for every
// tracked token, used to warm the cache before streaming begins.
func (c *RESTClient) FetchQuotes(ctx context.Context) (map[string]model.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ticker/24hr", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker request returned status %d", resp.StatusCode)
	}

	var tickers []restTicker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("failed to decode ticker response: %w", err)
	}

	now := time.Now().UTC()
	quotes := make(map[string]model.PriceQuote)
	for _, t := range tickers {
		token, ok := TokenForStream(t.Symbol)
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			c.logger.Warn("dropping malformed ticker",
				slog.String("symbol", t.Symbol),
				slog.Any("error", err))
			continue
		}
		quotes[token] = model.PriceQuote{
			Symbol:     token,
			Price:      price,
			Change24h:  parseFloatOrZero(t.ChangePercent),
			High24h:    parseFloatOrZero(t.HighPrice),
			Low24h:     parseFloatOrZero(t.LowPrice),
			Volume24h:  parseFloatOrZero(t.Volume),
			LastUpdate: now,
			Source:     model.SourceREST,
		}
	}
	return quotes, nil
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
