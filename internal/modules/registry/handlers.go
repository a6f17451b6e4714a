package registry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/auth"
)

// Handler handles AVS registry HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new registry handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "registry").Logger(),
	}
}

// Routes mounts the registry endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleRegister)
	r.Get("/", h.HandleList)
	r.Get("/{name}", h.HandleGet)
	r.Get("/{name}/risk-score", h.HandleGetRiskScore)
	r.Put("/{name}/risk-score", h.HandleSetRiskScore)
}

type registerRequest struct {
	Name          string `json:"name"`
	BaseRiskScore int    `json:"base_risk_score"`
}

// HandleRegister registers a new AVS (owner only)
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if err := h.service.Register(caller, req.Name, req.BaseRiskScore); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// HandleList returns all registered AVS in registration order
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleGet returns details for one AVS
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	avs, err := h.service.Get(chi.URLParam(r, "name"))
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, avs)
}

// HandleGetRiskScore returns just the current risk score
func (h *Handler) HandleGetRiskScore(w http.ResponseWriter, r *http.Request) {
	avs, err := h.service.Get(chi.URLParam(r, "name"))
	if err != nil {
		api.WriteDomainError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":       avs.Name,
		"risk_score": avs.RiskScore,
	})
}

type setScoreRequest struct {
	Score int `json:"score"`
}

// HandleSetRiskScore overwrites an AVS risk score (owner only)
func (h *Handler) HandleSetRiskScore(w http.ResponseWriter, r *http.Request) {
	var req setScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.CallerFromContext(r.Context())
	name := chi.URLParam(r, "name")
	if err := h.service.SetRiskScore(caller, name, req.Score); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":       name,
		"risk_score": req.Score,
	})
}
