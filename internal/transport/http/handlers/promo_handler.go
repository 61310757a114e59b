package handlers

import (
	"errors"
	"net/http"

	promosvc "github.com/FnipsDanil/crashTest-sub001/internal/services/promo"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type PromoHandler struct {
	service *promosvc.Service
}

func NewPromoHandler(service *promosvc.Service) *PromoHandler {
	return &PromoHandler{service: service}
}

func (h *PromoHandler) Use(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROMO_SERVICE_UNAVAILABLE", "promo service is unavailable")
		return
	}

	var req dto.UsePromoCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	redemption, err := h.service.Redeem(r.Context(), identity.UserID, req.PromoCode)
	if err != nil {
		switch {
		case errors.Is(err, promosvc.ErrInvalidCode):
			writeBadRequest(w, "INVALID_PROMO_CODE", "promo code format is invalid")
		case errors.Is(err, promosvc.ErrCodeNotFound):
			writeNotFound(w, "PROMO_CODE_NOT_FOUND", "promo code not found")
		case errors.Is(err, promosvc.ErrCodeExpired):
			writeConflict(w, "PROMO_CODE_EXPIRED", "promo code has expired")
		case errors.Is(err, promosvc.ErrCodeExhausted):
			writeConflict(w, "PROMO_CODE_EXHAUSTED", "promo code has no uses left")
		case errors.Is(err, promosvc.ErrAlreadyUsed):
			writeConflict(w, "PROMO_CODE_ALREADY_USED", "promo code was already used")
		case errors.Is(err, promosvc.ErrRedemptionBusy):
			writeConflict(w, "REDEMPTION_IN_PROGRESS", "another redemption is in progress")
		case errors.Is(err, promosvc.ErrPlayerNotFound):
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to redeem promo code")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UsePromoCodeResponse{
		Code:                  redemption.Code,
		BalanceGranted:        redemption.BalanceGranted,
		WithdrawalRequirement: redemption.WithdrawalRequirement,
		NewBalance:            redemption.NewBalance,
	})
}

func (h *PromoHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROMO_SERVICE_UNAVAILABLE", "promo service is unavailable")
		return
	}

	uses, err := h.service.History(r.Context(), identity.UserID, queryInt(r, "limit", 50))
	if err != nil {
		if errors.Is(err, promosvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load promo history")
		return
	}

	records := make([]dto.PromoUseResponse, 0, len(uses))
	for _, use := range uses {
		records = append(records, dto.PromoUseResponse{
			Code:           use.Code,
			BalanceGranted: use.BalanceGranted,
			UsedAt:         use.UsedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.PromoHistoryResponse{Uses: records})
}
