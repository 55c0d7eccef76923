package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradeapt/internal/app/dto"
	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/useCases"
)

// WebSocketBroadcaster implements the Broadcaster interface for live quote
// updates. Every connected client receives every quote the price cache
// accepts, in the same wire form the REST price endpoints use.
type WebSocketBroadcaster struct {
	clients    map[*websocket.Conn]struct{}
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewWebSocketBroadcaster(staleAfter time.Duration, logger *slog.Logger) *WebSocketBroadcaster {
	return &WebSocketBroadcaster{
		clients:    make(map[*websocket.Conn]struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		staleAfter: staleAfter,
		logger:     logger,
	}
}

var _ useCases.Broadcaster = (*WebSocketBroadcaster)(nil)

// BroadcastQuote pushes a quote update to every connected client. Clients
// that fail the write are dropped.
func (b *WebSocketBroadcaster) BroadcastQuote(symbol string, quote model.PriceQuote, stale bool) {
	payload := dto.FromQuote(quote, b.staleAfter)
	payload.IsStale = stale
	msg, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal quote", slog.Any("error", err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.logger.Debug("websocket write error", slog.Any("error", err))
			c.Close()
			delete(b.clients, c)
		}
	}
}

// Handler returns an http.HandlerFunc to accept websocket connections.
func (b *WebSocketBroadcaster) Handler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Warn("websocket upgrade error", slog.Any("error", err))
			return
		}
		b.mu.Lock()
		b.clients[conn] = struct{}{}
		b.mu.Unlock()
		// Read loop to detect disconnects; inbound frames are discarded.
		go func() {
			defer func() {
				b.mu.Lock()
				delete(b.clients, conn)
				b.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}

// ClientCount reports the number of connected clients, used by the health
// endpoint.
func (b *WebSocketBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
