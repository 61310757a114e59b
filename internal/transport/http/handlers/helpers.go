package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func pathUserID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "user_id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// requireOwnResource makes sure the authenticated player only reads their
// own records.
func requireOwnResource(w http.ResponseWriter, r *http.Request) (int64, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		httperrors.WriteUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return 0, false
	}

	userID, ok := pathUserID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user_id")
		return 0, false
	}
	if identity.UserID != userID {
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "FORBIDDEN",
			Message: "access to another player's data is not allowed",
		})
		return 0, false
	}

	return userID, true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		httperrors.WriteUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
