package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	paymentsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/payments"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type PaymentsHandler struct {
	service *paymentsvc.Service
}

func NewPaymentsHandler(service *paymentsvc.Service) *PaymentsHandler {
	return &PaymentsHandler{service: service}
}

func (h *PaymentsHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.CreateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), identity.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, paymentsvc.ErrInvalidAmount) {
			writeBadRequest(w, "INVALID_AMOUNT", "deposit amount is out of range")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to create invoice")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreateInvoiceResponse{
		Payload:    invoice.Payload,
		InvoiceURL: invoice.InvoiceURL,
		Amount:     invoice.Amount,
		Status:     string(invoice.Status),
	})
}

func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	status, err := h.service.Status(r.Context(), chi.URLParam(r, "payload"))
	if err != nil {
		if errors.Is(err, paymentsvc.ErrInvoiceNotFound) {
			writeNotFound(w, "INVOICE_NOT_FOUND", "invoice not found or expired")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load payment status")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentStatusResponse{
		Payload: status.Payload,
		Status:  string(status.Status),
		Amount:  status.Amount,
	})
}
