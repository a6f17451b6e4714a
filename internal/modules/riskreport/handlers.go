package riskreport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Handler handles risk report HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new risk report handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "riskreport").Logger(),
	}
}

// HandleReport returns the risk exposure summary for a user
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	user := domain.Principal(chi.URLParam(r, "user"))

	report, err := h.service.Report(user)
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}
