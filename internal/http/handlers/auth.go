package handlers

import (
	"net/http"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	"github.com/edubloom/edubloom-api/internal/http/middleware"
	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/service"
)

// authResponse — ответ login/refresh. Refresh-токен уходит только в cookie.
type authResponse struct {
	AccessToken string             `json:"accessToken"`
	User        *models.PublicUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errMalformedBody())
		return
	}

	actor, _ := middleware.IdentityFrom(r.Context())
	out, err := h.svc.Register(r.Context(), in, actor)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errMalformedBody())
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: res.Tokens.AccessToken, User: res.User})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(w, r)

	res, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		// Погашенный или чужой токен в cookie бесполезен клиенту.
		h.clearRefreshCookie(w)
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: res.Tokens.AccessToken, User: res.User})
}

// Logout всегда отвечает 200 и стирает cookie, даже без токена.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(w, r)
	h.svc.Logout(r.Context(), token)

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.IdentityFrom(r.Context())

	if _, err := h.svc.LogoutAll(r.Context(), actor); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out from all sessions"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	out, err := h.svc.GetUser(r.Context(), actor, actor.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
