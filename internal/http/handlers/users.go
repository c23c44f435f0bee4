package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	"github.com/edubloom/edubloom-api/internal/http/middleware"
	"github.com/edubloom/edubloom-api/internal/service"
)

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		apierrors.WriteError(w, r, &service.ValidationError{Issues: []service.FieldIssue{{Path: "limit", Message: "must be an integer"}}})
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		apierrors.WriteError(w, r, &service.ValidationError{Issues: []service.FieldIssue{{Path: "offset", Message: "must be an integer"}}})
		return
	}

	out, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidID())
		return
	}

	actor, _ := middleware.IdentityFrom(r.Context())
	out, err := h.svc.GetUser(r.Context(), actor, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidID())
		return
	}

	var in service.UpdateUserInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errMalformedBody())
		return
	}

	actor, _ := middleware.IdentityFrom(r.Context())
	out, err := h.svc.UpdateUser(r.Context(), actor, id, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidID())
		return
	}

	actor, _ := middleware.IdentityFrom(r.Context())
	if err := h.svc.DeleteUser(r.Context(), actor, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt читает необязательный целочисленный query-параметр; отсутствие — 0.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
