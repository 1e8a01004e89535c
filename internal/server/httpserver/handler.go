package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/core/service"
	"github.com/yndnr/snapfold-go/internal/filestore"
	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/telemetry/logger"
	"github.com/yndnr/snapfold-go/internal/telemetry/metric"
)

// Handler implements all Snapfold HTTP endpoints.
type Handler struct {
	svc     *service.FolderService
	reg     *registry.Registry
	files   *filestore.Store
	signer  *CookieSigner
	metrics *metric.Metrics

	heartbeat      time.Duration
	receiveTimeout time.Duration
	maxUploadBytes int64
}

// HandlerConfig carries the handler's collaborators and tunables.
// Handlers log through the request-scoped logger installed by the
// RequestID middleware.
type HandlerConfig struct {
	Service        *service.FolderService
	Registry       *registry.Registry
	Files          *filestore.Store
	Signer         *CookieSigner
	Metrics        *metric.Metrics
	Heartbeat      time.Duration
	ReceiveTimeout time.Duration
	MaxUploadBytes int64
}

// NewHandler creates the endpoint handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		svc:            cfg.Service,
		reg:            cfg.Registry,
		files:          cfg.Files,
		signer:         cfg.Signer,
		metrics:        cfg.Metrics,
		heartbeat:      cfg.Heartbeat,
		receiveTimeout: cfg.ReceiveTimeout,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	writeBody(w, response)
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "SF-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "SF-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeBody(w http.ResponseWriter, body any) {
	json.NewEncoder(w).Encode(body)
}
