package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/flowhub/internal/events"
)

// EventsHandler streams lifecycle events over a websocket
type EventsHandler struct {
	recorder *events.Recorder
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new events stream handler
func NewEventsHandler(recorder *events.Recorder, logger *slog.Logger, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{
		recorder: recorder,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// ServeHTTP handles GET /ws/events requests
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	stream, cancel := h.recorder.Subscribe()
	defer cancel()

	// Reader goroutine: detect client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event := <-stream:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Info("event stream closed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
