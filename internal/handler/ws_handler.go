package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/middleware"
	"github.com/satfergana/bluebook-gateway/internal/session"
	ws "github.com/satfergana/bluebook-gateway/internal/websocket"
)

var (
	errMissingIndex  = errors.New("goto requires an index")
	errUnknownAction = errors.New("unknown action")
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the session projection to the exam UI and accepts the
// in-module actions over one socket, so the question grid, the countdown
// display and the flag badges stay live without polling.
type WSHandler struct {
	registry *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket. Server pushes a typed "state" event on every state
// change and countdown tick; the client sends answer/flag/goto/submit/resume
// actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	ctrl := h.registry.Get(claims.UserID, examID)
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// Subscribe before the initial write so no transition is missed, then
	// send the first state synchronously so the client renders without
	// waiting for a tick.
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := ws.WriteState(conn, ctrl.Projection()); err != nil {
		return
	}

	// All writes after this point go through one goroutine draining a single
	// channel — gorilla conns allow only one concurrent writer.
	out := make(chan interface{}, 32)
	readerDone := make(chan struct{})
	defer close(readerDone)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case v := <-out:
				if err := ws.WriteTyped(conn, v); err != nil {
					return
				}
			case <-readerDone:
				return
			}
		}
	}()

	go func() {
		for p := range updates {
			select {
			case out <- ws.StateResponse{Event: ws.EventState, State: p}:
			case <-writerDone:
				return
			}
		}
	}()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if err := h.handleAction(c, ctrl, &msg, out); err != nil {
			wsLog.Debug().Err(err).Str("action", string(msg.Action)).Msg("Action rejected")
			select {
			case out <- ws.ErrorResponse{Event: ws.EventError, Error: err.Error()}:
			case <-writerDone:
				return
			}
		}
	}
}

// handleAction dispatches one client action to the controller. State pushes
// happen through the subscription, so handlers here only validate and act.
func (h *WSHandler) handleAction(c *gin.Context, ctrl *session.Controller, msg *ws.RequestPayload, out chan<- interface{}) error {
	switch msg.Action {
	case ws.ActionPing:
		select {
		case out <- ws.PongResponse{Event: ws.EventPong}:
		default:
		}
		return nil

	case ws.ActionAnswer:
		qid, err := uuid.Parse(msg.QuestionID)
		if err != nil {
			return err
		}
		_, err = ctrl.SetAnswer(qid, msg.Value)
		return err

	case ws.ActionFlag:
		qid, err := uuid.Parse(msg.QuestionID)
		if err != nil {
			return err
		}
		_, err = ctrl.ToggleFlag(qid)
		return err

	case ws.ActionGoTo:
		if msg.Index == nil {
			return errMissingIndex
		}
		_, err := ctrl.GoTo(*msg.Index)
		return err

	case ws.ActionNext:
		_, err := ctrl.Next()
		return err

	case ws.ActionPrev:
		_, err := ctrl.Previous()
		return err

	case ws.ActionSubmit:
		_, err := ctrl.SubmitModule(c.Request.Context())
		return err

	case ws.ActionResume:
		_, err := ctrl.ResumeNow(c.Request.Context())
		return err

	default:
		return errUnknownAction
	}
}
