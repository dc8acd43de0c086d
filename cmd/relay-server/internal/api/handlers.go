// Package api provides HTTP handlers for the relay server REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 500
)

var topicPattern = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// Relay is the part of relay.Service the handlers use.
type Relay interface {
	Publish(ctx context.Context, topic string, payload any)
	Health() model.HealthSnapshot
	DeadLetters(ctx context.Context, topic string, limit int) ([]model.DeadLetter, error)
	DeadLetterStats(ctx context.Context) (model.DeadLetterStats, error)
	DeleteDeadLetter(ctx context.Context, id int64) error
	RetrySchedule() string
}

// Handler holds dependencies for API handlers.
type Handler struct {
	relay  Relay
	logger relay.Logger
}

// NewHandler creates a new API handler.
func NewHandler(r Relay, logger relay.Logger) *Handler {
	return &Handler{
		relay:  r,
		logger: logger,
	}
}

// Routes registers the handlers on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/publish", h.HandlePublish)
	mux.HandleFunc("/api/v1/health", h.HandleHealth)
	mux.HandleFunc("/api/v1/deadletters", h.HandleDeadLetters)
	mux.HandleFunc("GET /api/v1/deadletters/stats", h.HandleDeadLetterStats)
	mux.HandleFunc("DELETE /api/v1/deadletters/{id}", h.HandleDeleteDeadLetter)
	mux.HandleFunc("/api/v1/retry-schedule", h.HandleRetrySchedule)
}

// PublishRequest represents a publish message request.
type PublishRequest struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Validate checks the request.
func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(1, 255), validation.Match(topicPattern)),
		validation.Field(&r.Data, validation.Required),
	)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandlePublish handles POST /api/v1/publish.
// Publishing never fails: the message is either sent or queued for retry.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
		return
	}

	h.relay.Publish(r.Context(), req.Topic, req.Data)

	h.respondSuccess(w, http.StatusAccepted, h.relay.Health(), "Message accepted")
}

// HandleHealth handles GET /api/v1/health.
// Responds 503 while the relay is enabled but cannot reach the broker.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	health := h.relay.Health()
	status := http.StatusOK
	if health.Enabled && !health.ProducerReady {
		status = http.StatusServiceUnavailable
	}

	h.respondSuccess(w, status, health, "")
}

// HandleDeadLetters handles GET /api/v1/deadletters?limit=N&topic=T.
func (h *Handler) HandleDeadLetters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	limit := defaultDeadLetterLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer", relay.ErrCodeValidation)
			return
		}
		limit = min(n, maxDeadLetterLimit)
	}

	items, err := h.relay.DeadLetters(r.Context(), r.URL.Query().Get("topic"), limit)
	if err != nil {
		h.respondStoreError(w, "Failed to list dead letters", err)
		return
	}

	h.respondSuccess(w, http.StatusOK, items, "")
}

// HandleDeadLetterStats handles GET /api/v1/deadletters/stats.
func (h *Handler) HandleDeadLetterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.relay.DeadLetterStats(r.Context())
	if err != nil {
		h.respondStoreError(w, "Failed to load dead letter stats", err)
		return
	}

	h.respondSuccess(w, http.StatusOK, stats, "")
}

// HandleRetrySchedule handles GET /api/v1/retry-schedule.
func (h *Handler) HandleRetrySchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.relay.RetrySchedule()))
}

// HandleDeleteDeadLetter handles DELETE /api/v1/deadletters/{id}.
func (h *Handler) HandleDeleteDeadLetter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid dead letter ID", relay.ErrCodeValidation)
		return
	}

	if err := h.relay.DeleteDeadLetter(r.Context(), id); err != nil {
		if relay.IsNoData(err) {
			h.respondError(w, http.StatusNotFound, "Dead letter not found", relay.ErrCodeNoData)
			return
		}
		h.respondStoreError(w, "Failed to delete dead letter", err)
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "Dead letter deleted")
}

// respondStoreError maps a dead-letter store error to a response.
func (h *Handler) respondStoreError(w http.ResponseWriter, message string, err error) {
	var relayErr *relay.Error
	if errors.As(err, &relayErr) && relayErr.Code == relay.ErrCodeConfiguration {
		h.respondError(w, http.StatusNotImplemented, "Dead-letter storage is not configured", relayErr.Code)
		return
	}
	h.logger.Errorf("%s: %v", message, err)
	h.respondError(w, http.StatusInternalServerError, message, relay.ErrCodeDatabase)
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
