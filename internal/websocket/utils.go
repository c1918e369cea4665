package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/satfergana/bluebook-gateway/internal/session"
)

// readIdleTimeout is how long the read side waits for any client message
// before the connection is dropped. A watching-only client must ping within
// this window; see ActionPing.
const readIdleTimeout = 5 * time.Minute

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// WriteState pushes a projection as a typed state event.
func WriteState(conn *websocket.Conn, p session.Projection) error {
	return WriteTyped(conn, StateResponse{Event: EventState, State: p})
}

// ReadJSON reads and decodes a message into the provided structure. Each
// call refreshes the read deadline, so a client that sends anything at
// least once per readIdleTimeout stays connected indefinitely.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	return conn.ReadJSON(v)
}
