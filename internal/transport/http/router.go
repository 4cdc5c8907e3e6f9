package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires the REST API, the quiz socket and health check.
// CORS and logging wrap the router so preflight and unmatched requests pass through them too.
func NewRouter(h *Handler, ws *WSHandler, log *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	if ws != nil {
		r.HandleFunc("/ws", ws.ServeWS)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(TimeoutMiddleware(requestTimeout))
	api.HandleFunc("/questions/{categoryId}", h.GetQuestions).Methods(http.MethodGet)
	api.HandleFunc("/submit", h.Submit).Methods(http.MethodPost)
	api.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	return RequestIDMiddleware(AccessLogMiddleware(log)(CORSMiddleware(r)))
}
