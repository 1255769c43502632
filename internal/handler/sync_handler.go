package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"finman-sync-server/internal/domain"
	"finman-sync-server/internal/guard"
	"finman-sync-server/internal/middleware"
	"finman-sync-server/internal/service"
	"finman-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

// UploadResult is the wire shape for a processed upload. FailedKinds is
// omitted when every kind landed.
type UploadResult struct {
	Status        string   `json:"status"`
	Timestamp     int64    `json:"timestamp"`
	SessionActive bool     `json:"sessionActive"`
	FailedKinds   []string `json:"failedKinds,omitempty"`
}

type SyncHandler struct {
	syncService *service.SyncService
	guard       *guard.AccessGuard
	validate    *validator.Validate
}

func NewSyncHandler(syncService *service.SyncService, accessGuard *guard.AccessGuard) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		guard:       accessGuard,
		validate:    validator.New(),
	}
}

// checkAccess applies the rate limiter and refreshes session affinity. It
// returns whether the request may proceed and whether the caller's token was
// already the active session before this request.
func (h *SyncHandler) checkAccess(w http.ResponseWriter, userID, token string) (ok, sessionActive bool) {
	if h.guard.IsRateLimited(userID) {
		response.TooManyRequests(w, "too many sync requests, slow down")
		return false, false
	}

	sessionActive = h.guard.IsActiveSession(userID, token)
	if !sessionActive {
		h.guard.RegisterSession(userID, token)
	}
	return true, sessionActive
}

func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = userID
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.UserID != userID {
		response.Forbidden(w, "user mismatch")
		return
	}

	ok, sessionActive := h.checkAccess(w, userID, middleware.GetToken(r))
	if !ok {
		return
	}

	report, err := h.syncService.Upload(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.Raw(w, http.StatusOK, UploadResult{
		Status:        "success",
		Timestamp:     report.Timestamp,
		SessionActive: sessionActive,
		FailedKinds:   report.FailedKinds,
	})
}

func (h *SyncHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var since int64
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		parsed, err := strconv.ParseInt(sinceParam, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid since parameter")
			return
		}
		since = parsed
	}

	ok, sessionActive := h.checkAccess(w, userID, middleware.GetToken(r))
	if !ok {
		return
	}

	snapshot, err := h.syncService.Download(r.Context(), userID, since)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	snapshot.SessionActive = sessionActive

	response.Raw(w, http.StatusOK, snapshot)
}

func (h *SyncHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	h.guard.CloseSession(userID, middleware.GetToken(r))

	response.Success(w, map[string]string{"status": "closed"})
}
