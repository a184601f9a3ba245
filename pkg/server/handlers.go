package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/obiverse/dojo/internal/tracing"
	"github.com/obiverse/dojo/pkg/errdefs"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsCapabilityMismatch(err), errdefs.IsSubstitution(err):
		return http.StatusUnprocessableEntity
	case errdefs.IsExecution(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := tracing.LoggerFromContext(r.Context(), s.logger)
	logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("kind", errdefs.KindOf(err)).
		Int("status", status).
		Msg("Request failed")
	writeError(w, status, err.Error())
}

// decode reads a JSON body. Numbers stay json.Number so integer arguments
// render without a trailing ".0".
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Status())
}

func (s *Server) handleNinjas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Workers())
}

func (s *Server) handleJutsu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Capabilities())
}

func (s *Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Contracts())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Seconds(),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if blank(req.Ninja, req.Jutsu) {
		writeError(w, http.StatusBadRequest, "Missing ninja or jutsu")
		return
	}

	result, err := s.coordinator.Dispatch(r.Context(), req.Ninja, req.Jutsu, req.Kwargs)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShadowCloneArmy(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if blank(req.Ninja, req.Jutsu) || len(req.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "Missing ninja, jutsu, or tasks")
		return
	}

	results, err := s.coordinator.ShadowCloneArmy(r.Context(), req.Ninja, req.Jutsu, req.Tasks)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCombination(w http.ResponseWriter, r *http.Request) {
	var req CombinationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "Missing steps")
		return
	}

	result, err := s.coordinator.Combination(r.Context(), req.Steps)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummon(w http.ResponseWriter, r *http.Request) {
	var req SummonRequest
	if !s.decode(w, r, &req) {
		return
	}
	if blank(req.Contract) {
		writeError(w, http.StatusBadRequest, "Missing contract name")
		return
	}

	result, err := s.coordinator.Summon(req.Contract)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	var req RawRequest
	if !s.decode(w, r, &req) {
		return
	}
	if blank(req.Ninja, req.Prompt) {
		writeError(w, http.StatusBadRequest, "Missing ninja or prompt")
		return
	}

	result, err := s.coordinator.Raw(r.Context(), req.Ninja, req.Prompt)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
