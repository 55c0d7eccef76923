package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tradeapt/internal/domain/repository"
	"tradeapt/internal/domain/useCases"
)

// defaultFetchTimeout bounds the REST fallback so a hung lookup is treated
// as a missing price instead of blocking the caller.
const defaultFetchTimeout = 10 * time.Second

// priceResolver answers "what is this token worth right now": the live
// cache first, then a one-shot REST lookup when the cache has never seen
// the symbol. Shared by the trade and alert engines.
type priceResolver struct {
	feed    useCases.PriceFeed
	source  repository.PriceSource
	timeout time.Duration
	logger  *slog.Logger
}

func newPriceResolver(feed useCases.PriceFeed, source repository.PriceSource, timeout time.Duration, logger *slog.Logger) priceResolver {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return priceResolver{feed: feed, source: source, timeout: timeout, logger: logger}
}

// resolve returns the current price for a token, false when no price is
// available from either the cache or the fallback.
func (r priceResolver) resolve(ctx context.Context, token string) (float64, bool) {
	if price, ok := r.feed.GetPrice(token); ok {
		return price, true
	}
	if r.source == nil {
		return 0, false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	price, err := r.source.FetchPrice(fetchCtx, token)
	if err != nil {
		r.logger.Warn("fallback price fetch failed",
			slog.String("token", token),
			slog.Any("error", err))
		return 0, false
	}
	return price, true
}

// newID generates a short unique id for orders, alerts and results.
func newID() string {
	return uuid.NewString()[:8]
}
