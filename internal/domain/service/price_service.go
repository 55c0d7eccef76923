package service

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/useCases"
)

// notifyThreshold is the minimum relative price change that fans out to
// subscribers. Smaller ticks update the cache silently to avoid
// notification storms.
const notifyThreshold = 0.0001 // 0.01%

// QuoteListener receives quote updates from the live price cache.
type QuoteListener func(symbol string, quote model.PriceQuote)

// LivePriceService is the in-process live price cache. The streaming
// adapter is its only writer; engines and request handlers read
// concurrently. Pegged assets are seeded once at construction and are
// immune to stream updates.
type LivePriceService struct {
	mu         sync.RWMutex
	quotes     map[string]model.PriceQuote
	pegged     map[string]struct{}
	staleAfter time.Duration

	subMu   sync.Mutex
	subs    map[int]QuoteListener
	nextSub int

	logger *slog.Logger
}

// NewLivePriceService creates the cache with the given staleness threshold
// and fixed-peg assets pinned at $1.
func NewLivePriceService(staleAfter time.Duration, pegged []string, logger *slog.Logger) *LivePriceService {
	s := &LivePriceService{
		quotes:     make(map[string]model.PriceQuote),
		pegged:     make(map[string]struct{}),
		staleAfter: staleAfter,
		subs:       make(map[int]QuoteListener),
		logger:     logger,
	}
	for _, sym := range pegged {
		sym = strings.ToUpper(sym)
		s.pegged[sym] = struct{}{}
		s.quotes[sym] = model.PriceQuote{
			Symbol:     sym,
			Price:      1.0,
			LastUpdate: time.Now().UTC(),
			Source:     model.SourceFixed,
		}
	}
	return s
}

var _ useCases.PriceFeed = (*LivePriceService)(nil)

// GetPrice returns the last known price for a symbol.
func (s *LivePriceService) GetPrice(symbol string) (float64, bool) {
	q, ok := s.GetQuote(symbol)
	if !ok {
		return 0, false
	}
	return q.Price, true
}

// GetQuote returns the full last known quote for a symbol.
func (s *LivePriceService) GetQuote(symbol string) (model.PriceQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// GetAllQuotes returns a copy of every cached quote keyed by symbol.
func (s *LivePriceService) GetAllQuotes() map[string]model.PriceQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.PriceQuote, len(s.quotes))
	for sym, q := range s.quotes {
		out[sym] = q
	}
	return out
}

// StaleAfter returns the configured staleness threshold so callers can
// judge quote freshness consistently.
func (s *LivePriceService) StaleAfter() time.Duration {
	return s.staleAfter
}

// Subscribe registers a listener for meaningful price changes. The returned
// function removes the listener.
func (s *LivePriceService) Subscribe(fn func(symbol string, quote model.PriceQuote)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = QuoteListener(fn)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Apply replaces the cached quote for a symbol with a fully-built new one.
// Updates for pegged assets are dropped. Subscribers are notified only when
// the price moved more than notifyThreshold relative to the previous quote.
func (s *LivePriceService) Apply(quote model.PriceQuote) {
	sym := strings.ToUpper(quote.Symbol)
	if _, fixed := s.pegged[sym]; fixed {
		return
	}
	quote.Symbol = sym

	s.mu.Lock()
	old, had := s.quotes[sym]
	s.quotes[sym] = quote
	s.mu.Unlock()

	if had && old.Price > 0 && math.Abs(quote.Price-old.Price)/old.Price <= notifyThreshold {
		return
	}
	s.notify(sym, quote)
}

// Seed loads quotes in bulk without notifying subscribers, used for the
// cold-start REST fetch and cache warm starts. Pegged assets and symbols
// that already have a fresher quote keep their current entry.
func (s *LivePriceService) Seed(quotes map[string]model.PriceQuote) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := 0
	for sym, q := range quotes {
		sym = strings.ToUpper(sym)
		if _, fixed := s.pegged[sym]; fixed {
			continue
		}
		if cur, ok := s.quotes[sym]; ok && cur.LastUpdate.After(q.LastUpdate) {
			continue
		}
		q.Symbol = sym
		s.quotes[sym] = q
		seeded++
	}
	return seeded
}

func (s *LivePriceService) notify(symbol string, quote model.PriceQuote) {
	s.subMu.Lock()
	listeners := make([]QuoteListener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		s.invoke(fn, symbol, quote)
	}
}

// invoke shields the cache from a misbehaving listener; a panic in one
// subscriber must not stop the stream loop or other subscribers.
func (s *LivePriceService) invoke(fn QuoteListener, symbol string, quote model.PriceQuote) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("price listener panicked",
				slog.String("symbol", symbol),
				slog.Any("panic", r))
		}
	}()
	fn(symbol, quote)
}
