package httpapi

import (
	"errors"
	"net"
	"net/http"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/services"
)

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

// loginAccessToken takes OAuth2 password form fields username and password.
func (a *API) loginAccessToken(w http.ResponseWriter, r *http.Request) {
	if a.limiter != nil && !a.limiter.Allow(r.Context(), "login:"+clientIP(r)) {
		writeDetail(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if email == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	tokens, err := a.users.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
			return
		}
		a.writeError(w, r, err)
		return
	}

	a.logger.Info(r.Context(), "Logged in", "email", email)
	writeJSON(w, http.StatusOK, newTokenResponse(tokens))
}

func (a *API) loginRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	tokens, err := a.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			writeDetail(w, http.StatusUnauthorized, "Refresh token expired")
		case errors.Is(err, common.ErrorUnauthorized):
			writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		default:
			a.writeError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(tokens))
}

// clientIP strips the port from RemoteAddr, which RealIP may already have
// replaced with a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
