package oracle

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/auth"
)

// Handler handles oracle adapter HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new oracle handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "oracle").Logger(),
	}
}

type setOracleRequest struct {
	URL string `json:"url"`
}

// HandleSetOracle replaces the oracle reference (owner only)
func (h *Handler) HandleSetOracle(w http.ResponseWriter, r *http.Request) {
	var req setOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if err := h.service.SetOracle(caller, req.URL); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"oracle_url": req.URL})
}

// HandleRefresh pulls the oracle score for one AVS (trusted backend only)
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := h.service.Refresh(r.Context(), caller, name); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"refreshed": name})
}
