package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HeaderRefreshToken — запасной канал передачи refresh-токена для не-браузерных клиентов.
const HeaderRefreshToken = "X-Refresh-Token"

// setRefreshCookie кладёт refresh-токен в HttpOnly cookie на время жизни refresh-токена.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearRefreshCookie стирает refresh-cookie на клиенте.
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshTokenFrom ищет refresh-токен в порядке: cookie, поле refreshToken
// в JSON-теле, заголовок X-Refresh-Token. Битое тело игнорируется.
func (h *Handlers) refreshTokenFrom(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cookie.Name); err == nil && c.Value != "" {
		return c.Value
	}

	if r.Body != nil && r.Body != http.NoBody {
		var body refreshBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err == nil {
			if t := strings.TrimSpace(body.RefreshToken); t != "" {
				return t
			}
		}
	}

	return strings.TrimSpace(r.Header.Get(HeaderRefreshToken))
}
