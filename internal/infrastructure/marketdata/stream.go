package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
	"tradeapt/internal/domain/service"
)

// DefaultStreamURL is the Binance combined stream endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443/stream"

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 60 * time.Second
	pingInterval       = 20 * time.Second
	readTimeout        = 60 * time.Second
)

// StreamClient keeps a WebSocket subscription to the 24h ticker streams of
// every tracked token and feeds each update into the live price cache. On
// disconnect it reconnects with exponential backoff; the backoff resets
// after any successful reconnect. Malformed frames are dropped and logged,
// never fatal.
type StreamClient struct {
	url    string
	tokens []string
	cache  *service.LivePriceService
	source repository.PriceSource
	logger *slog.Logger
}

// NewStreamClient creates a client streaming the given tokens into cache.
// source, when non-nil, is used once at startup to bulk-seed the cache so
// early queries do not miss.
func NewStreamClient(url string, tokens []string, cache *service.LivePriceService, source repository.PriceSource, logger *slog.Logger) *StreamClient {
	if url == "" {
		url = DefaultStreamURL
	}
	if len(tokens) == 0 {
		tokens = TrackedTokens()
	}
	return &StreamClient{
		url:    url,
		tokens: tokens,
		cache:  cache,
		source: source,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled, maintaining the stream connection.
// The initial REST seed happens before the first dial.
func (c *StreamClient) Run(ctx context.Context) error {
	c.seed(ctx)

	delay := baseReconnectDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Error("stream connect failed",
				slog.Duration("retry_in", delay),
				slog.Any("error", err))
		} else {
			delay = baseReconnectDelay
			c.logger.Info("price stream connected",
				slog.Int("tokens", len(c.tokens)))
			c.readLoop(ctx, conn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// seed performs the one-time bulk fetch so the cache answers queries during
// stream warm-up. Failure is non-fatal; the stream will fill the cache.
func (c *StreamClient) seed(ctx context.Context) {
	if c.source == nil {
		return
	}
	quotes, err := c.source.FetchQuotes(ctx)
	if err != nil {
		c.logger.Warn("initial price seed failed", slog.Any("error", err))
		return
	}
	n := c.cache.Seed(quotes)
	c.logger.Info("initial prices loaded", slog.Int("count", n))
}

func (c *StreamClient) dial(ctx context.Context) (*websocket.Conn, error) {
	streams := make([]string, 0, len(c.tokens))
	for _, token := range c.tokens {
		if s, ok := StreamSymbol(token); ok {
			streams = append(streams, s+"@ticker")
		}
	}
	if len(streams) == 0 {
		return nil, errors.New("no tracked tokens to stream")
	}

	url := fmt.Sprintf("%s?streams=%s", c.url, strings.Join(streams, "/"))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

// readLoop consumes frames until the connection breaks or ctx is
// cancelled. Cancellation closes the connection to unblock the read.
func (c *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("price stream disconnected", slog.Any("error", err))
			}
			return
		}

		quote, err := decodeTicker(msg)
		if err != nil {
			c.logger.Debug("dropping malformed stream frame", slog.Any("error", err))
			continue
		}
		c.cache.Apply(quote)
	}
}

// combinedFrame is the envelope of the combined stream endpoint.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tickerPayload is the Binance 24h ticker event. All numerics arrive as
// strings.
type tickerPayload struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	ChangePercent string `json:"P"`
	HighPrice     string `json:"h"`
	LowPrice      string `json:"l"`
	Volume        string `json:"v"`
}

// decodeTicker parses a stream frame into a quote. Frames for untracked
// symbols and frames without a parsable price are rejected.
func decodeTicker(msg []byte) (model.PriceQuote, error) {
	var frame combinedFrame
	payload := msg
	if err := json.Unmarshal(msg, &frame); err == nil && len(frame.Data) > 0 {
		payload = frame.Data
	}

	var ticker tickerPayload
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return model.PriceQuote{}, fmt.Errorf("unmarshal ticker: %w", err)
	}
	if ticker.Symbol == "" {
		return model.PriceQuote{}, errors.New("frame has no symbol")
	}

	token, ok := TokenForStream(ticker.Symbol)
	if !ok {
		return model.PriceQuote{}, fmt.Errorf("untracked stream symbol %q", ticker.Symbol)
	}

	price, err := strconv.ParseFloat(ticker.LastPrice, 64)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("malformed price %q: %w", ticker.LastPrice, err)
	}

	return model.PriceQuote{
		Symbol:     token,
		Price:      price,
		Change24h:  parseFloatOrZero(ticker.ChangePercent),
		High24h:    parseFloatOrZero(ticker.HighPrice),
		Low24h:     parseFloatOrZero(ticker.LowPrice),
		Volume24h:  parseFloatOrZero(ticker.Volume),
		LastUpdate: time.Now().UTC(),
		Source:     model.SourceStream,
	}, nil
}
