package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"accounts_api/internal/api/middleware"
	"accounts_api/internal/app/service"
	"accounts_api/internal/common"

	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	accountService *service.AccountService
	tokenService   *service.TokenService
}

func NewAccountHandler(accountService *service.AccountService, tokenService *service.TokenService) *AccountHandler {
	return &AccountHandler{accountService: accountService, tokenService: tokenService}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register/", h.register)
	r.Post("/login/", h.login)
	r.Post("/token/refresh/", h.refresh)
	r.Post("/logout/", h.logout)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/profile/", h.profile)
	})
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, account)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	pair, err := h.tokenService.IssueSession(r.Context(), account)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, pair)
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *AccountHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.Refresh)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, pair)
}

func (h *AccountHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.tokenService.RevokeSession(r.Context(), req.Refresh); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	account, err := h.accountService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Token subject no longer exists.
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, account)
}
