package handler

import (
	"errors"
	"net/http"

	"finman-sync-server/internal/domain"
	"finman-sync-server/internal/middleware"
	"finman-sync-server/internal/repository"
	"finman-sync-server/internal/service"
	"finman-sync-server/pkg/response"
)

type UserHandler struct {
	identityService *service.IdentityService
}

func NewUserHandler(identityService *service.IdentityService) *UserHandler {
	return &UserHandler{
		identityService: identityService,
	}
}

// Lookup resolves an email to a user id for clients migrating local data
// keyed by email.
func (h *UserHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r) == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email is required")
		return
	}

	userID, err := h.identityService.FindUserIDByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.Success(w, domain.UserLookupResponse{UserID: userID})
}
