package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"notiplay/internal/app"
)

// WSHandler runs the trivia modal over a websocket. One connection is one play-through;
// closing the connection abandons it.
type WSHandler struct {
	service  *app.TriviaService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TriviaService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
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

type selectPayload struct {
	Option string `json:"option"`
}

type creditedPayload struct {
	Points  int    `json:"points"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and plays the quiz attached to contentId.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	contentID := r.URL.Query().Get("contentId")
	if contentID == "" {
		http.Error(w, "missing contentId", http.StatusBadRequest)
		return
	}
	session := SessionFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(4096)

	play := h.service.Open(r.Context(), session, contentID)
	log := h.logger.With("play", play.ID(), "content", contentID, "user", session.UserID)
	log.Debug("trivia opened", "state", play.State())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Warn("ws write error", "err", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		case <-closeSignals:
		}
	}

	// The credit can return before the completed message is queued; hold it until then.
	var (
		creditMu      sync.Mutex
		completedSent bool
		pendingCredit *creditedPayload
	)
	play.OnCredit(func(o app.CreditOutcome) {
		p := creditedPayload{Points: o.Points, OK: o.Err == nil}
		if o.Err != nil {
			p.Message = "your points could not be saved"
		}
		creditMu.Lock()
		if !completedSent {
			pendingCredit = &p
			creditMu.Unlock()
			return
		}
		creditMu.Unlock()
		emit("credited", p)
	})

	snap := play.Snapshot()
	emit("state", snap)
	if snap.State == app.StateUnavailable {
		emit("error", errorBody{Message: "trivia is unavailable right now"})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit("error", errorBody{Message: "invalid select payload"})
				continue
			}
			reveal, err := play.Select(payload.Option)
			if err != nil {
				emit("error", errorBody{Message: err.Error()})
				continue
			}
			emit("revealed", reveal)
		case "advance":
			snap, err := play.Advance()
			if err != nil {
				emit("error", errorBody{Message: err.Error()})
				continue
			}
			if snap.State == app.StateCompleted {
				log.Info("trivia completed", "points", snap.Score.FinalPoints)
				emit("completed", snap)
				creditMu.Lock()
				completedSent = true
				p := pendingCredit
				creditMu.Unlock()
				if p != nil {
					emit("credited", *p)
				}
				continue
			}
			emit("state", snap)
		default:
			emit("error", errorBody{Message: "unsupported message type"})
		}
	}

	// Dropping the play first keeps a late credit from reaching a closed connection.
	play.Close()
	close(closeSignals)
	<-writerDone
	log.Debug("trivia closed", "state", play.State())
}
