package handlers

import (
	"net/http"
	"strings"

	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type VerifyHandler struct {
	service *authsvc.Service
}

func NewVerifyHandler(service *authsvc.Service) *VerifyHandler {
	return &VerifyHandler{service: service}
}

// Handle checks a declared player id against the signed Telegram init
// data. The endpoint always answers 200 with a verdict; failures are
// conveyed in the reason string, never as transport errors.
func (h *VerifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyUserRequest
	if err := decodeJSON(r, &req); err != nil {
		httperrors.Write(w, http.StatusOK, dto.VerifyUserResponse{
			Valid:  false,
			Reason: authsvc.ReasonMissingAuth,
		})
		return
	}

	initData := strings.TrimSpace(req.InitData)
	if initData == "" {
		initData = strings.TrimSpace(r.Header.Get("X-Telegram-Init-Data"))
	}

	if h.service == nil {
		httperrors.Write(w, http.StatusOK, dto.VerifyUserResponse{
			Valid:  false,
			Reason: authsvc.ReasonVerifierUnavail,
		})
		return
	}

	result := h.service.ValidateUser(r.Context(), req.UserID, initData)
	resp := dto.VerifyUserResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
	}

	if result.Valid {
		if verified, err := h.service.VerifyUser(r.Context(), initData); err == nil {
			resp.SessionToken = verified.SessionToken
			resp.SessionExpires = &verified.SessionExpires
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}
