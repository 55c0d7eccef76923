package useCases

import (
	"net/http"

	"tradeapt/internal/domain/model"
)

// PriceFeed is the read side of the live price cache, consumed by the trade
// and alert engines and by the API layer.
type PriceFeed interface {
	// GetPrice returns the last known price for a symbol, false if the
	// symbol has never been seen.
	GetPrice(symbol string) (float64, bool)

	// GetQuote returns the full quote for a symbol.
	GetQuote(symbol string) (model.PriceQuote, bool)

	// GetAllQuotes returns a copy of every cached quote keyed by symbol.
	GetAllQuotes() map[string]model.PriceQuote

	// Subscribe registers a listener invoked on every meaningful price
	// change. The returned function removes the listener.
	Subscribe(fn func(symbol string, quote model.PriceQuote)) func()
}

// Broadcaster defines an interface for pushing quote updates to
// WebSocket/API layers.
type Broadcaster interface {
	BroadcastQuote(symbol string, quote model.PriceQuote, stale bool)
	Handler() func(http.ResponseWriter, *http.Request)
}
