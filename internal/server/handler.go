package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"careeradvisor/internal/errors"
)

const defaultHealthCheckTimeout = 5 * time.Second

func (s *Server) getHealthCheckTimeout() time.Duration {
	if timeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout; timeout > 0 {
		return timeout
	}
	return defaultHealthCheckTimeout
}

// healthHandler reports service health including completion model status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "careeradvisor",
		"version": s.Version,
	}

	healthy := true
	if s.models != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
		defer cancel()

		info := s.models.GetModelInfo(ctx)
		response["ai_model"] = info
		if info == nil || !info.Available {
			healthy = false
		}
	}

	if s.prompts != nil {
		response["prompts"] = s.promptStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.Logger.LogError(err, "Failed to encode health response")
	}
}

// statsHandler provides server statistics including breaker and limiter info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "careeradvisor",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes":  s.MaxRequestSize,
			"max_document_size_bytes": s.AppConfig.App.MaxDocumentSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
		}
	}

	if s.models != nil {
		response["circuit_breakers"] = s.models.Stats()
	}
	if s.certificates != nil {
		response["tls"] = s.certificates.stats()
	}
	if s.prompts != nil {
		response["prompts"] = s.promptStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.Logger.LogError(err, "Failed to encode stats response")
	}
}

func (s *Server) promptStatus() map[string]any {
	status := map[string]any{
		"version": s.prompts.Version(),
		"files":   s.prompts.Files(),
	}
	if s.promptWatcher != nil {
		status["watching"] = s.promptWatcher.IsRunning()
	}
	return status
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return readBodyError(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON body", err)
	}

	return nil
}

func readBodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeRequestTooLarge,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
}

// statusForError maps an AppError code to the HTTP status returned to clients.
func statusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeRequestTooLarge, errors.ErrCodeDocumentTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeDocumentExtraction, errors.ErrCodeUnsupportedDocument, errors.ErrCodeEmptyDocument:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeAIUnavailable, errors.ErrCodeMissingAPIKey:
		return http.StatusServiceUnavailable
	case errors.ErrCodeAIServiceFailed, errors.ErrCodeAIEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorTitle gives a short, client-facing summary for an error code.
func errorTitle(err error) string {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return "Invalid request"
	case errors.ErrorTypeDocument:
		return "Could not read the resume"
	case errors.ErrorTypeAI:
		return "The AI service could not complete the analysis"
	default:
		return "Internal server error"
	}
}

// writeAppError writes err as a JSON error response with a mapped status.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	message := err.Error()
	if appErr, ok := errors.AsAppError(err); ok {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}
	writeErrorResponse(w, r, errorTitle(err), message, errors.CodeOf(err), status)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, title, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:     title,
		Message:   message,
		Code:      code,
		RequestID: requestIDOf(r),
	}

	_ = json.NewEncoder(w).Encode(response)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
