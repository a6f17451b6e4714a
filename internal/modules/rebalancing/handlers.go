package rebalancing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Handler handles rebalance HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleTrigger runs a sweep for one user (trusted backend only)
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	user := domain.Principal(chi.URLParam(r, "user"))

	if err := h.service.TriggerRebalance(caller, user); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"user": string(user), "status": "rebalanced"})
}
