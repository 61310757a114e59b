package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	sendersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/senders"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type SendersHandler struct {
	service *sendersvc.Service
}

func NewSendersHandler(service *sendersvc.Service) *SendersHandler {
	return &SendersHandler{service: service}
}

func (h *SendersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SENDERS_SERVICE_UNAVAILABLE", "senders service is unavailable")
		return
	}

	includeBlocked := r.URL.Query().Get("include_blocked") == "true"
	senders, err := h.service.List(r.Context(),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0), includeBlocked)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load senders")
		return
	}

	records := make([]dto.SenderResponse, 0, len(senders))
	for _, sender := range senders {
		records = append(records, dto.SenderResponse{
			ChatID:        sender.ChatID,
			Username:      sender.Username,
			FirstName:     sender.FirstName,
			LastName:      sender.LastName,
			VerifiedAt:    sender.VerifiedAt,
			LastMessageAt: sender.LastMessageAt,
			MessageCount:  sender.MessageCount,
			IsBlocked:     sender.IsBlocked,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.SendersResponse{Senders: records})
}

func (h *SendersHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SENDERS_SERVICE_UNAVAILABLE", "senders service is unavailable")
		return
	}

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chat_id"), 10, 64)
	if err != nil || chatID == 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid chat_id")
		return
	}

	var req dto.BlockSenderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SetBlocked(r.Context(), chatID, req.Blocked, req.Notes); err != nil {
		if errors.Is(err, sendersvc.ErrSenderNotFound) {
			writeNotFound(w, "SENDER_NOT_FOUND", "sender not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to update sender")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
