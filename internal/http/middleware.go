package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// Claims is the token payload issued by the host system. The subject carries
// the numeric user id; the profile claims are optional.
type Claims struct {
	Capabilities []domain.Capability `json:"caps,omitempty"`
	GivenName    string              `json:"given_name,omitempty"`
	FamilyName   string              `json:"family_name,omitempty"`
	Email        string              `json:"email,omitempty"`
	Country      string              `json:"country,omitempty"`
	jwt.StandardClaims
}

// NewToken signs claims for the user. Used by tests and local tooling.
func NewToken(secret string, userID int64, caps ...domain.Capability) (string, error) {
	return SignClaims(secret, Claims{
		Capabilities:   caps,
		StandardClaims: jwt.StandardClaims{Subject: strconv.FormatInt(userID, 10)},
	})
}

func SignClaims(secret string, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AuthMiddleware validates the bearer token and stores the acting user in the
// request context. Requests without a valid token get 401.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			actor, err := parseToken(secret, raw)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(secret, raw string) (domain.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	if !token.Valid {
		return domain.Actor{}, fmt.Errorf("token not valid")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Actor{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return domain.Actor{
		UserID:       userID,
		Capabilities: claims.Capabilities,
		Profile: domain.Profile{
			FirstName: claims.GivenName,
			LastName:  claims.FamilyName,
			Email:     claims.Email,
			Country:   claims.Country,
		},
	}, nil
}

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
