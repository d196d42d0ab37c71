package handler

import (
	"net/http"

	"accounts_api/internal/api/middleware"
	"accounts_api/internal/app/service"
	"accounts_api/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AdminHandler struct {
	accountService *service.AccountService
}

func NewAdminHandler(accountService *service.AccountService) *AdminHandler {
	return &AdminHandler{accountService: accountService}
}

// RegisterRoutes is mounted under /admin/users. Every route needs a bearer
// token; the staff requirement itself is enforced by the service.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listAccounts)
	r.Patch("/{id}/approve/", h.approve)
	r.Put("/{id}/approve/", h.approve)
	r.Patch("/{id}/make-staff/", h.makeStaff)
	r.Delete("/{id}/delete/", h.deleteAccount)
}

// targetID validates the id path segment. Account IDs are UUIDs; anything
// else cannot name an existing account, so it is reported as not found
// rather than handed to Postgres as an unscannable value.
func targetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		common.RespondWithError(w, http.StatusNotFound, common.ErrNotFound.Error())
		return "", false
	}
	return id, true
}

func (h *AdminHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context(), actorID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, accounts)
}

func (h *AdminHandler) approve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	id, ok := targetID(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.Approve(r.Context(), actorID, id)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, account)
}

func (h *AdminHandler) makeStaff(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	id, ok := targetID(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.PromoteToStaff(r.Context(), actorID, id)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusOK, account.Username+" is now a staff member.")
}

func (h *AdminHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	id, ok := targetID(w, r)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), actorID, id); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
