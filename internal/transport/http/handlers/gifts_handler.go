package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	giftsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/gifts"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type GiftsHandler struct {
	service *giftsvc.Service
}

func NewGiftsHandler(service *giftsvc.Service) *GiftsHandler {
	return &GiftsHandler{service: service}
}

func (h *GiftsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "GIFTS_SERVICE_UNAVAILABLE", "gifts service is unavailable")
		return
	}

	gifts, err := h.service.List(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load gifts")
		return
	}

	records := make([]dto.GiftResponse, 0, len(gifts))
	for _, gift := range gifts {
		records = append(records, dto.GiftResponse{
			ID:          gift.ID,
			Name:        gift.Name,
			Description: gift.Description,
			Price:       gift.Price,
			Emoji:       gift.Emoji,
			ImageURL:    gift.ImageURL,
			IsUnique:    gift.IsUnique,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.GiftsResponse{Gifts: records})
}

// UploadImage accepts a multipart form with an "image" part and replaces
// the gift's catalog image. Admin-token gated in the router.
func (h *GiftsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "GIFTS_SERVICE_UNAVAILABLE", "gifts service is unavailable")
		return
	}

	giftID := chi.URLParam(r, "gift_id")

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "image part is required")
		return
	}
	defer func() { _ = file.Close() }()

	imageURL, err := h.service.UploadImage(r.Context(), giftID, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, giftsvc.ErrGiftNotFound):
			writeNotFound(w, "GIFT_NOT_FOUND", "gift not found")
		case errors.Is(err, giftsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "image is invalid")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to upload gift image")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.GiftImageUploadResponse{
		GiftID:   giftID,
		ImageURL: imageURL,
	})
}
