package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// SSEBroker pushes live leaderboard updates to connected viewers. It
// polls the aggregate state on a fixed interval and broadcasts the
// top-N snapshot as one SSE event per tick. Slow clients are never
// allowed to block a broadcast.
type SSEBroker struct {
	reader   domain.LeaderboardReader
	logger   *slog.Logger
	interval time.Duration
	topN     int64

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewSSEBroker creates the broker and starts its broadcast loop,
// which runs until ctx is cancelled.
func NewSSEBroker(ctx context.Context, reader domain.LeaderboardReader, logger *slog.Logger, interval time.Duration, topN int64) *SSEBroker {
	b := &SSEBroker{
		reader:   reader,
		logger:   logger,
		interval: interval,
		topN:     topN,
		clients:  make(map[chan []byte]struct{}),
	}
	go b.run(ctx)
	return b
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	messageChan := make(chan []byte, 4)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (b *SSEBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("live viewer connected")
}

func (b *SSEBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("live viewer disconnected")
	}
}

func (b *SSEBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client; drop this tick for it rather than block.
		}
	}
}

func (b *SSEBroker) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.RLock()
			idle := len(b.clients) == 0
			b.mu.RUnlock()
			if idle {
				continue
			}

			entries, err := b.reader.TopN(ctx, b.topN)
			if err != nil {
				b.logger.Warn("live leaderboard read failed", "error", err)
				continue
			}
			payload, err := json.Marshal(map[string]any{
				"type":    "leaderboard_update",
				"leaders": entries,
			})
			if err != nil {
				b.logger.Error("failed to marshal live update", "error", err)
				continue
			}
			b.broadcast(payload)
		}
	}
}
