package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-service/internal/domain"
)

// WSHandler runs a quiz over a single socket: fetch a question set, then submit answers.
type WSHandler struct {
	quiz     QuizUseCases
	log      *zap.Logger
	timeout  time.Duration
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewWSHandler(quiz QuizUseCases, log *zap.Logger, timeout time.Duration) *WSHandler {
	return &WSHandler{
		quiz:     quiz,
		log:      log,
		timeout:  timeout,
		validate: newValidator(),
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

type questionsPayload struct {
	CategoryID string `json:"categoryId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and answers "questions" and "submit" messages until the client leaves.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		reply := h.dispatch(r.Context(), inbound)
		if err := conn.WriteJSON(reply); err != nil {
			h.log.Warn("ws write error", zap.Error(err))
			return
		}
	}
}

func (h *WSHandler) dispatch(parent context.Context, inbound inboundMessage) outboundMessage {
	ctx := parent
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, h.timeout)
		defer cancel()
	}

	switch inbound.Type {
	case "questions":
		var payload questionsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid questions payload")
		}
		set, err := h.quiz.GetQuestionSet(ctx, payload.CategoryID)
		if err != nil {
			return wsError(err.Error())
		}
		return outboundMessage{Type: "questionSet", Payload: set}
	case "submit":
		var payload submitRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid submit payload")
		}
		if err := h.validate.Struct(payload); err != nil {
			return wsError(validationMessage(err))
		}
		answers := make([]domain.Answer, 0, len(payload.Answers))
		for _, a := range payload.Answers {
			answers = append(answers, domain.Answer{QuestionID: a.QuestionID, SelectedOptionID: a.SelectedOptionID})
		}
		result, err := h.quiz.ScoreSubmission(ctx, answers)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidSubmission) {
				h.log.Error("ws score failed", zap.Error(err))
			}
			return wsError(err.Error())
		}
		return outboundMessage{Type: "score", Payload: result}
	default:
		return wsError("unsupported message type")
	}
}

func wsError(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: wsErrorPayload{Message: msg}}
}
