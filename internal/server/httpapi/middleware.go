package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/auth"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

const tokenCookie = "token"

// authenticate resolves the bearer token to a user. A missing token is 401,
// a token that fails verification 403 and a token for a deleted user 404.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, a.jwtSecret)
		if err != nil {
			writeDetail(w, http.StatusForbidden, "Could not validate credentials")
			return
		}

		user, err := a.users.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				writeDetail(w, http.StatusNotFound, "User not found")
				return
			}
			a.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r); u == nil || !u.IsSuperuser {
			writeDetail(w, http.StatusForbidden, "The user doesn't have enough privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// canAccess reports whether u may see a resource owned by ownerID.
func canAccess(u *models.User, ownerID string) bool {
	return u.IsSuperuser || u.ID == ownerID
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}
