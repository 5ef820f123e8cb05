package middleware

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/service"
)

// JWTMiddleware verifies the session cookie issued by the platform's
// auth component and stores the claims in the request context. This core
// never issues tokens, it only trusts the shared secret.
func JWTMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(KeyJwtSessionCookieName)
		if err != nil {
			http.Error(w, "missing session cookie", http.StatusUnauthorized)
			return
		}

		claims := service.UserCredentialClaims{}
		token, err := jwt.ParseWithClaims(
			cookie.Value,
			&claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(os.Getenv(service.KeyJWTSecret)), nil
			},
		)
		if err != nil || !token.Valid {
			log.Warnf("rejected request with invalid session token, %v", err)
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), service.KeyCtxUserCredClaims, claims)
		next(w, r.WithContext(ctx))
	}
}
