package preferences

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Handler handles preference HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new preferences handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "preferences").Logger(),
	}
}

type setPreferencesRequest struct {
	MaxRiskScore int `json:"max_risk_score"`
}

// HandleSet sets the calling user's preferences
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req setPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if err := h.service.Set(caller, req.MaxRiskScore); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	pref, err := h.service.Get(caller)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, pref)
}

// HandleGet returns preferences for a user (read-only, any caller)
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := domain.Principal(chi.URLParam(r, "user"))
	pref, err := h.service.Get(user)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, pref)
}
