package handlers

import (
	"errors"
	"net/http"

	bonussvc "github.com/FnipsDanil/crashTest-sub001/internal/services/bonus"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type BonusHandler struct {
	service *bonussvc.Service
}

func NewBonusHandler(service *bonussvc.Service) *BonusHandler {
	return &BonusHandler{service: service}
}

func (h *BonusHandler) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "BONUS_SERVICE_UNAVAILABLE", "bonus service is unavailable")
		return
	}

	var req dto.CheckSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	claim, err := h.service.CheckAndClaim(r.Context(), identity.UserID, req.ChannelID)
	if err != nil {
		switch {
		case errors.Is(err, bonussvc.ErrBonusDisabled):
			writeConflict(w, "BONUS_DISABLED", "channel bonuses are disabled")
		case errors.Is(err, bonussvc.ErrInvalidChannel):
			writeBadRequest(w, "INVALID_CHANNEL", "channel identifier is invalid")
		case errors.Is(err, bonussvc.ErrNotSubscribed):
			writeConflict(w, "NOT_SUBSCRIBED", "subscribe to the channel first")
		case errors.Is(err, bonussvc.ErrAlreadyClaimed):
			writeConflict(w, "BONUS_ALREADY_CLAIMED", "bonus for this channel was already claimed")
		case errors.Is(err, bonussvc.ErrClaimBusy):
			writeConflict(w, "CLAIM_IN_PROGRESS", "another claim is in progress")
		case errors.Is(err, bonussvc.ErrPlayerNotFound):
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to check channel subscription")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CheckSubscriptionResponse{
		ChannelID:   claim.ChannelID,
		BonusAmount: claim.BonusAmount,
		NewBalance:  claim.NewBalance,
		ClaimedAt:   claim.ClaimedAt,
	})
}

func (h *BonusHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "BONUS_SERVICE_UNAVAILABLE", "bonus service is unavailable")
		return
	}

	claimed, err := h.service.ListClaimed(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, bonussvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load channel bonuses")
		return
	}

	records := make([]dto.ChannelBonusResponse, 0, len(claimed))
	for _, bonus := range claimed {
		records = append(records, dto.ChannelBonusResponse{
			ChannelID:   bonus.ChannelID,
			BonusAmount: bonus.BonusAmount,
			ClaimedAt:   bonus.ClaimedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ChannelBonusesResponse{Bonuses: records})
}
