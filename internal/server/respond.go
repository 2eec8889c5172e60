package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gryork/pkg/types"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string   `json:"error"`
	Problems  []string `json:"problems,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// statusFor maps the domain error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var (
		validationErr *types.ValidationError
		transitionErr *types.InvalidTransitionError
		stateErr      *types.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transitionErr), errors.As(err, &stateErr),
		errors.Is(err, types.ErrAlreadySelected), errors.Is(err, types.ErrStatusConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), RequestID: requestIDFromContext(r.Context())}

	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		resp.Error = "validation failed"
		resp.Problems = validationErr.Problems
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": resp.RequestID,
		}).Error("request failed")
		resp.Error = "internal server error"
	}

	s.writeJSON(w, status, resp)
}

// decodeJSON checks the body against schema before unmarshalling into dst.
func (s *Service) decodeJSON(r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return types.NewValidationError("body: exceeds 1 MiB")
	}

	if err := s.validator.Document(schema, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return types.NewValidationError(fmt.Sprintf("body: %v", err))
	}
	return nil
}

// decodeQuery fills dst from the URL query using form tags.
func decodeQuery(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return types.NewValidationError(fmt.Sprintf("query: %v", err))
	}
	return nil
}
