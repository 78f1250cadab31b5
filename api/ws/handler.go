package ws

import (
	"net/http"

	gws "github.com/gorilla/websocket"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/websocket"
	"github.com/UKHgit/meet-point/pkg/logger"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict in production.
	},
}

// HandleWebSocket upgrades the request and binds the connection to a
// fresh hub session. The optional displayName query parameter seeds the
// session name; when absent a placeholder is generated.
func HandleWebSocket(hub *chat.Hub, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("upgrade error: %v", err)
			return
		}

		c := websocket.NewConnection(conn, hub, logg)
		session := hub.Register(c, r.URL.Query().Get("displayName"))
		logg.Infof("new connection from %s (session=%s)", conn.RemoteAddr(), session.ID)

		go c.WritePump()
		go c.ReadPump(session)
	}
}
