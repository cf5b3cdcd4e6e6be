/*
auth.go - JWT tenant authentication

PURPOSE:
  Every API request carries a bearer token identifying the tenant
  (company_id), the acting user (actor) and their role. The middleware
  verifies the HS256 signature, rejects expired tokens and stashes the
  claims in the request context; handlers read the tenant from there and
  never from the URL or body, which is what makes cross-tenant access
  impossible to express.

ROLES:
  "admin"  may change config versions and drive the period lifecycle
  "staff"  everything else (data entry, reads)
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/payroll-engine/hrm"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Claims is the token payload.
type Claims struct {
	CompanyID string `json:"company_id"`
	Actor     string `json:"actor"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// IssueToken signs a token for a tenant actor. Used by tests and by
// whatever identity service fronts this API in production.
func IssueToken(secret []byte, companyID hrm.CompanyID, actor, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		CompanyID: string(companyID),
		Actor:     actor,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticator verifies the bearer token and injects claims into the
// request context.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			var claims Claims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}
			if claims.CompanyID == "" {
				writeError(w, http.StatusUnauthorized, "Token has no company_id", nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, &claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates config and period lifecycle endpoints.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := claimsFrom(r.Context()); claims == nil || claims.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// tenantFrom returns the authenticated tenant. Middleware guarantees the
// claims exist on every routed request.
func tenantFrom(ctx context.Context) hrm.CompanyID {
	if claims := claimsFrom(ctx); claims != nil {
		return hrm.CompanyID(claims.CompanyID)
	}
	return ""
}

func actorFrom(ctx context.Context) string {
	if claims := claimsFrom(ctx); claims != nil {
		return claims.Actor
	}
	return ""
}
