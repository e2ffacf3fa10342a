package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	jwt "github.com/golang-jwt/jwt/v5"
)

const staffRolePrefix = "ADMIN"

// Claims identify a staff member. Name is recorded as lastUpdatedBy.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewStaffToken signs an HS256 token for name with role.
func NewStaffToken(secret []byte, name, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("staff auth is not configured")
	}
	t, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// RequireStaff admits requests bearing a valid token whose role starts with
// ADMIN. Everyone else is either staff or public; there are no finer roles.
func RequireStaff(secret []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
				return
			}
			claims, err := parseToken(secret, raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
				return
			}
			if !strings.HasPrefix(strings.ToUpper(claims.Role), staffRolePrefix) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "staff only"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// actorFrom names the staff member behind the request.
func actorFrom(ctx context.Context) string {
	c, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}
