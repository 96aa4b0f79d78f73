package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/domain"
)

// WSHandler pushes a fresh leaderboard to the client after every rank recomputation.
type WSHandler struct {
	hub         *app.Hub
	leaderboard *app.LeaderboardService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(hub *app.Hub, leaderboard *app.LeaderboardService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub:         hub,
		leaderboard: leaderboard,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type viewPayload struct {
	Range string `json:"range"`
	Limit int    `json:"limit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// view is the leaderboard selection a connection follows; the client may change it.
type view struct {
	mu sync.Mutex
	q  app.LeaderboardQuery
}

func (v *view) get() app.LeaderboardQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.q
}

func (v *view) set(q app.LeaderboardQuery) {
	v.mu.Lock()
	v.q = q
	v.mu.Unlock()
}

// ServeWS upgrades to a websocket that streams leaderboard snapshots. The
// range and limit query parameters select the initial view.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q, err := parseLeaderboardQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	current := &view{q: q}
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", slog.Any("err", err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- h.snapshot(r.Context(), current.get()):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "view":
			next, err := parseView(inbound.Payload)
			if err != nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				break
			}
			current.set(next)
			reply = h.snapshot(r.Context(), next)
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: struct{}{}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) snapshot(ctx context.Context, q app.LeaderboardQuery) outboundMessage[any] {
	lb, err := h.leaderboard.Query(ctx, q)
	if err != nil {
		h.logger.Warn("ws leaderboard query failed", slog.Any("err", err))
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
	}
	return outboundMessage[any]{Type: "leaderboard", Payload: lb}
}

func parseView(raw json.RawMessage) (app.LeaderboardQuery, error) {
	var p viewPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return app.LeaderboardQuery{}, domain.InvalidInput("invalid view payload")
	}
	rng, err := domain.ParseRange(p.Range)
	if err != nil {
		return app.LeaderboardQuery{}, domain.InvalidInput("unknown range %s", strconv.Quote(p.Range))
	}
	return app.LeaderboardQuery{Range: rng, Limit: p.Limit}, nil
}
