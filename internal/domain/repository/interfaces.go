// Package repository defines all the collaborator interfaces used by domain
// services. Following the dependency inversion principle, domain logic
// depends on these interfaces, and infrastructure implementations provide
// concrete implementations.
package repository

import (
	"context"

	"tradeapt/internal/domain/model"
)

// PriceSource provides one-shot price lookups over REST. It is used to seed
// the live cache on cold start and as a fallback when a symbol is missing
// from the stream.
type PriceSource interface {
	// FetchPrice returns the current USD price for a token symbol.
	// Any error means the price is unavailable, not that the caller
	// should retry.
	FetchPrice(ctx context.Context, symbol string) (float64, error)

	// FetchQuotes returns full 24h quotes for every tracked symbol in one
	// call, used to warm the cache before streaming begins.
	FetchQuotes(ctx context.Context) (map[string]model.PriceQuote, error)
}

// QuoteCache is a snapshot store for last-known quotes. It exists so a
// restarted process can answer price queries before the stream reconnects;
// implementations should prioritize speed over durability.
type QuoteCache interface {
	SaveQuote(ctx context.Context, quote *model.PriceQuote) error

	// GetQuote returns (nil, nil) when the symbol has no snapshot.
	GetQuote(ctx context.Context, symbol string) (*model.PriceQuote, error)

	GetAllQuotes(ctx context.Context) ([]*model.PriceQuote, error)
}

// TradeHistory is the audit sink for evaluation outcomes. The engines never
// depend on its success; failures are logged and dropped.
type TradeHistory interface {
	SaveTradeResult(ctx context.Context, result *model.TradeResult) error
	SaveAlertTrigger(ctx context.Context, alert *model.AlertRule) error

	// GetTradeResultsSince retrieves recorded results after the given unix
	// timestamp, oldest first.
	GetTradeResultsSince(ctx context.Context, since int64) ([]*model.TradeResult, error)
}

// EventPublisher pushes executed trades and triggered alerts onto an event
// stream for downstream consumers. Fire and forget: publish failures must
// never affect engine state.
type EventPublisher interface {
	PublishTradeResult(ctx context.Context, result *model.TradeResult) error
	PublishAlertTrigger(ctx context.Context, alert *model.AlertRule) error
	Close() error
}
