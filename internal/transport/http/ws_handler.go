package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

type WSHandler struct {
	orchestrator *app.Orchestrator
	upgrader     websocket.Upgrader
}

func NewWSHandler(orchestrator *app.Orchestrator) *WSHandler {
	return &WSHandler{
		orchestrator: orchestrator,
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

type createSessionPayload struct {
	QuizID string `json:"quizId"`
	HostID string `json:"hostId"`
}

type claimHostPayload struct {
	PIN string `json:"pin"`
}

type joinPayload struct {
	PIN       string `json:"pin"`
	Name      string `json:"name"`
	AccountID string `json:"accountId"`
}

type schedulePayload struct {
	InSeconds int `json:"inSeconds"`
}

type answerPayload struct {
	OptionIndex int `json:"optionIndex"`
}

type sessionCreatedPayload struct {
	PIN string `json:"pin"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
)

// ServeWS upgrades the request and drives one connection's command loop.
// A connection binds to a session by creating, claiming, or joining one;
// from then on every session broadcast is forwarded to it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	defer h.orchestrator.Disconnect(connID)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		boundPIN    string
		unsubscribe func()
		updatesDone chan struct{}
	)

	bind := func(pin string) {
		if boundPIN == pin {
			return
		}
		updates, cancel, err := h.orchestrator.Subscribe(pin)
		if err != nil {
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		if unsubscribe != nil {
			unsubscribe()
			<-updatesDone
		}
		boundPIN = pin
		unsubscribe = cancel
		updatesDone = make(chan struct{})
		done := updatesDone
		go func() {
			defer close(done)
			for {
				select {
				case event, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage{Type: event.Type, Payload: event.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		// The broadcasts emitted while this command ran predate the
		// subscription; push a fresh snapshot so the new listener is not
		// blind until the next state change.
		if err := h.orchestrator.PublishState(r.Context(), pin); err != nil {
			log.Printf("ws publish state: %v", err)
		}
	}

	fail := func(err error) {
		send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "createSession":
			var payload createSessionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errInvalidPayload)
				continue
			}
			quizID, err := uuid.Parse(payload.QuizID)
			if err != nil {
				fail(domain.ErrQuizNotFound)
				continue
			}
			pin, err := h.orchestrator.CreateAndClaimSession(r.Context(), connID, payload.HostID, quizID)
			if err != nil {
				fail(err)
				continue
			}
			bind(pin)
			send <- outboundMessage{Type: domain.EventSessionCreated, Payload: sessionCreatedPayload{PIN: pin}}
		case "claimHost":
			var payload claimHostPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errInvalidPayload)
				continue
			}
			if err := h.orchestrator.ClaimHost(r.Context(), payload.PIN, connID); err != nil {
				fail(err)
				continue
			}
			bind(app.NormalizePin(payload.PIN))
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errInvalidPayload)
				continue
			}
			if err := h.orchestrator.JoinAsPlayer(r.Context(), payload.PIN, connID, payload.Name, payload.AccountID); err != nil {
				fail(err)
				continue
			}
			bind(app.NormalizePin(payload.PIN))
		case "scheduleQuestion":
			var payload schedulePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errInvalidPayload)
				continue
			}
			if err := h.orchestrator.ScheduleNextQuestion(r.Context(), boundPIN, payload.InSeconds, 0); err != nil {
				fail(err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errInvalidPayload)
				continue
			}
			if err := h.orchestrator.SubmitAnswer(r.Context(), boundPIN, connID, payload.OptionIndex); err != nil {
				fail(err)
			}
		case "endQuestion":
			if err := h.orchestrator.EndCurrentQuestion(r.Context(), boundPIN); err != nil {
				fail(err)
			}
		case "cancelSession":
			if err := h.orchestrator.CancelSession(r.Context(), boundPIN); err != nil {
				fail(err)
			}
		default:
			fail(errUnsupportedType)
		}
	}

	close(closeSignals)
	if unsubscribe != nil {
		unsubscribe()
		<-updatesDone
	}
	close(send)
	<-writerDone
}
