package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"unionwatch/internal/logging"
	"unionwatch/internal/model"
	"unionwatch/internal/store"
)

const wsWriteTimeout = 10 * time.Second

// ChangesHandler streams model snapshots over a websocket: the current
// snapshot on connect, then one message per completed store write.
type ChangesHandler struct {
	Store          *store.Store[model.Tree]
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

type changePayload struct {
	Type      string     `json:"type"`
	Model     model.Tree `json:"model"`
	Timestamp time.Time  `json:"timestamp"`
}

func (h *ChangesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Store == nil {
		http.Error(w, "change stream unavailable", http.StatusServiceUnavailable)
		return
	}

	output, cancel := h.Store.Subscribe()
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, h.AllowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", map[string]string{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		if err := writeSnapshot(conn, "snapshot", h.Store.Read()); err != nil {
			return
		}
		for {
			select {
			case tree, ok := <-output:
				if !ok {
					return
				}
				if err := writeSnapshot(conn, "update", tree); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, kind string, tree model.Tree) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(changePayload{
		Type:      kind,
		Model:     tree,
		Timestamp: time.Now().UTC(),
	})
}
