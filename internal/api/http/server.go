// Package httpapi exposes read-only access to booking requests and payment
// transactions for operator tooling. The conversational flow never goes
// through HTTP; this surface exists for dashboards and support.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/payment"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	requests booking.Repository
	txs      payment.Repository
	logger   zerolog.Logger
}

func NewServer(requests booking.Repository, txs payment.Repository, logger zerolog.Logger) *Server {
	return &Server{
		requests: requests,
		txs:      txs,
		logger:   logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/requests", s.listRequests)
		r.Get("/requests/{id}", s.getRequest)
		r.Get("/requests/{id}/transaction", s.getRequestTransaction)
		r.Get("/transactions", s.listTransactions)
	})
	return r
}

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	filter := booking.ListFilter{Limit: 50}
	if v := r.URL.Query().Get("requesterId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid requesterId")
			return
		}
		filter.RequesterID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := booking.Status(v)
		filter.Status = &st
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid offset")
			return
		}
		filter.Offset = offset
	}

	requests, err := s.requests.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list requests failed")
		respondError(w, http.StatusInternalServerError, "internal", "failed to list requests")
		return
	}
	if requests == nil {
		requests = []*booking.Request{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}
	req, err := s.requests.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("request_id", id).Msg("get request failed")
		respondError(w, http.StatusInternalServerError, "internal", "failed to load request")
		return
	}
	if req == nil {
		respondError(w, http.StatusNotFound, "not_found", "request not found")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) getRequestTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid request id")
		return
	}
	tx, err := s.txs.GetByRequestID(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("request_id", id).Msg("get transaction failed")
		respondError(w, http.StatusInternalServerError, "internal", "failed to load transaction")
		return
	}
	if tx == nil {
		respondError(w, http.StatusNotFound, "not_found", "no transaction for request")
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	requesterID, err := strconv.ParseInt(r.URL.Query().Get("requesterId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "requesterId is required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
	}
	txs, err := s.txs.ListByRequester(r.Context(), requesterID, limit, 0)
	if err != nil {
		s.logger.Error().Err(err).Int64("requester_id", requesterID).Msg("list transactions failed")
		respondError(w, http.StatusInternalServerError, "internal", "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*payment.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
