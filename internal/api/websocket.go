package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// streamInterval is how often a connected client receives a snapshot.
const streamInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamPortfolio handles GET /ws/portfolio. Each connected client
// receives the current portfolio status on connect and then on a
// fixed interval until it disconnects.
func (h *Handler) StreamPortfolio(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		http.Error(w, "live engine not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket connection: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.engine.Status()); err != nil {
		return
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(h.engine.Status()); err != nil {
				return
			}
		}
	}
}
