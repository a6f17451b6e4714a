package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/api"
	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

type depositRequest struct {
	AVSName string `json:"avs_name"`
	Amount  int64  `json:"amount"`
}

// HandleDeposit credits the calling user's balance in an AVS
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if err := h.service.Deposit(caller, req.AVSName, req.Amount); err != nil {
		api.WriteDomainError(w, err)
		return
	}

	balance, err := h.service.BalanceOf(caller, req.AVSName)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.Balance{
		User:    caller,
		AVSName: req.AVSName,
		Amount:  balance,
	})
}

// HandleListUsers returns every known depositor (driver support)
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users()
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// HandleBalances returns all positive balances for a user
func (h *Handler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	user := domain.Principal(chi.URLParam(r, "user"))
	balances, err := h.service.Balances(user)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if balances == nil {
		balances = []domain.Balance{}
	}
	api.WriteJSON(w, http.StatusOK, balances)
}

// HandleBalanceOf returns one (user, avs) balance, 0 when absent
func (h *Handler) HandleBalanceOf(w http.ResponseWriter, r *http.Request) {
	user := domain.Principal(chi.URLParam(r, "user"))
	avsName := chi.URLParam(r, "avs")

	amount, err := h.service.BalanceOf(user, avsName)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.Balance{
		User:    user,
		AVSName: avsName,
		Amount:  amount,
	})
}
