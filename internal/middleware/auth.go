package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// OwnerParam is the route parameter naming the account a request acts for.
const OwnerParam = "ownerID"

// OwnerAuth requires an HS256 bearer token whose subject is the {ownerID} of
// the matched route. With an empty secret every request passes. It must be
// mounted inside a route that declares {ownerID}.
func OwnerAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "missing token")
				return
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				utils.RespondError(w, http.StatusUnauthorized, "invalid claims")
				return
			}
			if subject != chi.URLParam(r, OwnerParam) {
				utils.RespondError(w, http.StatusForbidden, "token does not belong to this account")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter browsers must use for EventSource and
// WebSocket connections.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}
