package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"topic-quiz-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// leaderboardLive streams leaderboard snapshots for a topic over a
// websocket. The stream is read-only: submissions go through the plain
// HTTP endpoint and every successful one is pushed to subscribers here.
func (h *Handler) leaderboardLive(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r)
	if !ok {
		return
	}

	updates, cancel, err := h.quiz.SubscribeLeaderboard(r.Context(), topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer cancel()

	// Drain inbound frames so close handshakes are noticed; any read
	// error ends the subscription.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for update := range updates {
		if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
