package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"price-notifier/internal/pricesource"
	"price-notifier/internal/product"
	"price-notifier/internal/storage"
)

const ownerHeader = "X-User-Email"

type observationResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	CurrentPrice  string  `json:"current_price"`
	LastCheckedAt *string `json:"last_checked_at"`
	CreatedAt     string  `json:"created_at"`
}

type sampleResponse struct {
	Price     string `json:"price"`
	CheckedAt string `json:"checked_at"`
}

type detailsResponse struct {
	observationResponse
	History []sampleResponse `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toObservationResponse(obs storage.Observation) observationResponse {
	resp := observationResponse{
		ID:           obs.ID,
		Name:         obs.Name,
		URL:          obs.URL,
		CurrentPrice: obs.CurrentPrice.String(),
		CreatedAt:    obs.CreatedAt.UTC().Format(time.RFC3339),
	}
	if obs.LastCheckedAt != nil {
		s := obs.LastCheckedAt.UTC().Format(time.RFC3339)
		resp.LastCheckedAt = &s
	}
	return resp
}

func toDetailsResponse(obs storage.Observation) detailsResponse {
	resp := detailsResponse{observationResponse: toObservationResponse(obs)}
	resp.History = make([]sampleResponse, 0, len(obs.History))
	for _, sample := range obs.History {
		resp.History = append(resp.History, sampleResponse{
			Price:     sample.Price.String(),
			CheckedAt: sample.CheckedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// owner extracts the caller identity. Authentication proper sits in front of
// this service; an empty header is rejected outright.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := r.Header.Get(ownerHeader)
	if email == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return "", false
	}
	return email, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	processed, err := s.refresher.Run(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("batch refresh failed")
		writeError(w, http.StatusInternalServerError, "batch refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed})
}

func (s *Server) handleObserveByName(w http.ResponseWriter, r *http.Request) {
	email, ok := owner(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	obs, err := s.products.ObserveByName(r.Context(), email, req.Name)
	if err != nil {
		s.writeObserveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toObservationResponse(obs))
}

func (s *Server) handleObserveByURL(w http.ResponseWriter, r *http.Request) {
	email, ok := owner(w, r)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	obs, err := s.products.ObserveByURL(r.Context(), email, req.URL)
	if err != nil {
		s.writeObserveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toObservationResponse(obs))
}

func (s *Server) writeObserveError(w http.ResponseWriter, err error) {
	var resolveErr *product.ResolveError
	switch {
	case errors.As(err, &resolveErr):
		switch resolveErr.Reason {
		case pricesource.ReasonNotFound:
			writeError(w, http.StatusNotFound, resolveErr.Error())
		case pricesource.ReasonInvalidInput:
			writeError(w, http.StatusBadRequest, resolveErr.Error())
		default:
			writeError(w, http.StatusBadGateway, resolveErr.Error())
		}
	case errors.Is(err, pricesource.ErrSourceUnreachable):
		writeError(w, http.StatusBadGateway, "price source unreachable")
	default:
		s.logger.Error().Err(err).Msg("observe request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	email, ok := owner(w, r)
	if !ok {
		return
	}

	items, err := s.products.List(r.Context(), email)
	if err != nil {
		s.logger.Error().Err(err).Msg("list observations failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]observationResponse, 0, len(items))
	for _, obs := range items {
		resp = append(resp, toObservationResponse(obs))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	email, ok := owner(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	obs, err := s.products.Details(r.Context(), id, email)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "observation not found")
			return
		}
		s.logger.Error().Err(err).Msg("observation details failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toDetailsResponse(obs))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := owner(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.products.Delete(r.Context(), id, email); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "observation not found")
			return
		}
		s.logger.Error().Err(err).Msg("delete observation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
