package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const organizerContextKey contextKey = "organizer"

var ErrNoOrganizerInContext = errors.New("organizer claims not found in request context")

// Authenticate verifies the bearer token and stores the organizer's
// claims in the request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), organizerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOrganizerIDFromContext extracts the authenticated organizer's id
// placed there by Authenticate.
func GetOrganizerIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(organizerContextKey).(jwt.MapClaims)
	if !ok {
		return 0, ErrNoOrganizerInContext
	}
	raw, ok := claims["organizer_id"]
	if !ok {
		return 0, errors.New("missing 'organizer_id' claim in token")
	}
	id, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T for 'organizer_id' claim", raw)
	}
	return int(id), nil
}
