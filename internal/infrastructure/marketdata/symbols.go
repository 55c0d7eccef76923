// Package marketdata adapts the Binance public market data APIs to the
// domain's price interfaces: a REST client for one-shot lookups and bulk
// seeding, and a WebSocket client feeding the live price cache.
package marketdata

import "strings"

// tokenToStream maps canonical token tickers to Binance stream symbols.
// This is the tracked universe; pegged stablecoins are deliberately absent
// because their price is pinned in the cache.
var tokenToStream = map[string]string{
	"BTC":   "btcusdt",
	"ETH":   "ethusdt",
	"BNB":   "bnbusdt",
	"XRP":   "xrpusdt",
	"SOL":   "solusdt",
	"ADA":   "adausdt",
	"DOGE":  "dogeusdt",
	"DOT":   "dotusdt",
	"AVAX":  "avaxusdt",
	"LTC":   "ltcusdt",
	"LINK":  "linkusdt",
	"UNI":   "uniusdt",
	"ATOM":  "atomusdt",
	"XLM":   "xlmusdt",
	"ALGO":  "algousdt",
	"FIL":   "filusdt",
	"AAVE":  "aaveusdt",
	"XTZ":   "xtzusdt",
	"HBAR":  "hbarusdt",
	"GRT":   "grtusdt",
	"CRV":   "crvusdt",
	"SNX":   "snxusdt",
	"COMP":  "compusdt",
	"MKR":   "mkrusdt",
	"LDO":   "ldousdt",
	"APE":   "apeusdt",
	"IMX":   "imxusdt",
	"FET":   "fetusdt",
	"WLD":   "wldusdt",
	"APT":   "aptusdt",
	"SUI":   "suiusdt",
	"SEI":   "seiusdt",
	"ARB":   "arbusdt",
	"OP":    "opusdt",
	"NEAR":  "nearusdt",
	"INJ":   "injusdt",
	"TIA":   "tiausdt",
	"STX":   "stxusdt",
	"PEPE":  "pepeusdt",
	"SHIB":  "shibusdt",
	"WIF":   "wifusdt",
	"BONK":  "bonkusdt",
	"FLOKI": "flokiusdt",
}

var streamToToken = func() map[string]string {
	m := make(map[string]string, len(tokenToStream))
	for token, stream := range tokenToStream {
		m[stream] = token
	}
	return m
}()

// StreamSymbol returns the Binance stream symbol for a token ticker.
func StreamSymbol(token string) (string, bool) {
	s, ok := tokenToStream[strings.ToUpper(token)]
	return s, ok
}

// TokenForStream returns the canonical ticker for a Binance symbol.
func TokenForStream(symbol string) (string, bool) {
	t, ok := streamToToken[strings.ToLower(symbol)]
	return t, ok
}

// TrackedTokens returns every ticker in the tracked universe.
func TrackedTokens() []string {
	tokens := make([]string, 0, len(tokenToStream))
	for t := range tokenToStream {
		tokens = append(tokens, t)
	}
	return tokens
}
