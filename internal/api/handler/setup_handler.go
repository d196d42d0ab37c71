package handler

import (
	"encoding/json"
	"net/http"

	"accounts_api/internal/app/service"
	"accounts_api/internal/common"

	"github.com/go-chi/chi/v5"
)

// SetupHandler serves the one-time first-admin bootstrap flow. Both routes
// are public: the creation endpoint gates itself on no admin existing yet.
type SetupHandler struct {
	accountService *service.AccountService
}

func NewSetupHandler(accountService *service.AccountService) *SetupHandler {
	return &SetupHandler{accountService: accountService}
}

func (h *SetupHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/exists/", h.adminExists)
	r.Post("/create-initial-admin/", h.createInitialAdmin)
}

type AdminExistsResponse struct {
	AdminExists bool `json:"admin_exists"`
}

func (h *SetupHandler) adminExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.accountService.AdminExists(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, AdminExistsResponse{AdminExists: exists})
}

func (h *SetupHandler) createInitialAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if _, err := h.accountService.BootstrapFirstAdmin(r.Context(), req); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusCreated, "Initial admin created successfully. You can now log in.")
}
