package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/crisp-labs/interview-engine/internal/interview"
	"github.com/crisp-labs/interview-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEnvelope wraps the two message kinds sent on the event stream: one
// initial session snapshot, then live events.
type wsEnvelope struct {
	Type    string           `json:"type"` // "snapshot" or "event"
	Session *models.Session  `json:"session,omitempty"`
	Event   *interview.Event `json:"event,omitempty"`
}

// handleSessionEvents streams transcript, countdown and phase events
// for one session over a websocket. Closing the socket detaches the
// client: the question clock halts until the session is resumed.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	session, err := s.orchestrator.Get(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	events, cancel, err := s.orchestrator.Subscribe(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("event stream connected", "session_id", sessionID)

	if err := sendEnvelope(conn, wsEnvelope{Type: "snapshot", Session: session}); err != nil {
		return
	}

	// Reader: discard inbound messages, detect disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	// Writer: pump events until the client goes away
	for {
		select {
		case <-done:
			slog.Info("event stream disconnected", "session_id", sessionID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sendEnvelope(conn, wsEnvelope{Type: "event", Event: &ev}); err != nil {
				return
			}
		}
	}
}

func sendEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to marshal event", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send event", "error", err)
		return err
	}
	return nil
}
