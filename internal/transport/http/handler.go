package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quiz-service/internal/domain"
)

// QuizUseCases is what the transport needs from the quiz service.
type QuizUseCases interface {
	GetQuestionSet(ctx context.Context, categoryID string) ([]domain.QuestionWithOptions, error)
	ScoreSubmission(ctx context.Context, answers []domain.Answer) (domain.ScoreResult, error)
}

// AuthUseCases is what the transport needs from the auth service.
type AuthUseCases interface {
	Signup(ctx context.Context, fullname, email, password string) error
	Login(ctx context.Context, email, password string) (domain.UserView, error)
}

type Handler struct {
	quiz     QuizUseCases
	auth     AuthUseCases
	log      *zap.Logger
	validate *validator.Validate
}

func NewHandler(quiz QuizUseCases, auth AuthUseCases, log *zap.Logger) *Handler {
	return &Handler{
		quiz:     quiz,
		auth:     auth,
		log:      log,
		validate: newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type answerRequest struct {
	QuestionID       int64 `json:"question_id" validate:"gt=0"`
	SelectedOptionID int64 `json:"selected_option_id" validate:"gt=0"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers" validate:"dive"`
}

type signupRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	User    *domain.UserView `json:"user,omitempty"`
}

// GetQuestions serves GET /api/questions/{categoryId}.
func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	categoryID := mux.Vars(r)["categoryId"]
	set, err := h.quiz.GetQuestionSet(r.Context(), categoryID)
	if err != nil {
		h.serverError(r, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// Submit serves POST /api/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	answers := make([]domain.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, domain.Answer{QuestionID: a.QuestionID, SelectedOptionID: a.SelectedOptionID})
	}

	result, err := h.quiz.ScoreSubmission(r.Context(), answers)
	if errors.Is(err, domain.ErrInvalidSubmission) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.serverError(r, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Signup serves POST /api/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Missing email or password"})
		return
	}

	err := h.auth.Signup(r.Context(), req.Fullname, req.Email, req.Password)
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Email already registered"})
	case err != nil:
		h.serverError(r, err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Server error"})
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: "User registered successfully!"})
	}
}

// Login serves POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Message: "Invalid request body"})
		return
	}
	h.log.Debug("login attempt", zap.String("email", req.Email), zap.String("request_id", RequestID(r.Context())))

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, domain.ErrMissingCredentials):
		writeJSON(w, http.StatusBadRequest, loginResponse{Message: "Missing email or password"})
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Message: "User not found"})
	case errors.Is(err, domain.ErrIncorrectPassword):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Message: "Incorrect password"})
	case err != nil:
		h.serverError(r, err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Message: "Server error"})
	default:
		writeJSON(w, http.StatusOK, loginResponse{Success: true, Message: "Login successful", User: &user})
	}
}

// Healthz serves GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (h *Handler) serverError(r *http.Request, err error) {
	h.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
}

// decode rejects fields the request type does not declare.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + ": failed " + fe.Tag()
	}
	return err.Error()
}
