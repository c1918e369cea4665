package websocket

import "github.com/satfergana/bluebook-gateway/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionFlag   Action = "flag"
	ActionGoTo   Action = "goto"
	ActionNext   Action = "next"
	ActionPrev   Action = "prev"
	ActionSubmit Action = "submit"
	ActionResume Action = "resume"
	// ActionPing is the client keepalive. A client that only watches the
	// state stream must ping at least once every five minutes or the server
	// closes the connection on read-deadline expiry.
	ActionPing Action = "ping"
)

// RequestPayload is the single client message shape. Fields beyond Action
// are read depending on the action.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Value      string `json:"value,omitempty"`
	Index      *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState Event = "state"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// StateResponse pushes the session projection after every mutation and
// countdown tick.
type StateResponse struct {
	Event Event              `json:"event"`
	State session.Projection `json:"state"`
}

// ErrorResponse reports a rejected action without closing the stream.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// PongResponse answers a keepalive ping.
type PongResponse struct {
	Event Event `json:"event"`
}
