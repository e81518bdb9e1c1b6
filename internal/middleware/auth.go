package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"busdriver/pkg/utils"
)

type contextKey string

const DriverContextKey contextKey = "driver"

const (
	RoleDriver     = "driver"
	RoleDispatcher = "dispatcher"
)

// TokenTTL is how long an issued token stays valid
const TokenTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type DriverClaims struct {
	DriverID string `json:"driver_id"`
	Role     string `json:"role"`
}

// IssueToken signs an HS256 token carrying the driver id and role
func IssueToken(secret string, claims DriverClaims, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"driver_id": claims.DriverID,
		"role":      claims.Role,
		"iat":       now.Unix(),
		"exp":       now.Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates tokenString and extracts its claims
func ParseToken(secret, tokenString string) (DriverClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return DriverClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return DriverClaims{}, ErrInvalidToken
	}
	driverID, _ := claims["driver_id"].(string)
	role, _ := claims["role"].(string)
	if driverID == "" || role == "" {
		return DriverClaims{}, ErrInvalidToken
	}

	return DriverClaims{DriverID: driverID, Role: role}, nil
}

// Auth validates the bearer token and adds the driver claims to the context
func Auth(secret string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debugf("❌ No authorization header on %s %s", r.Method, r.URL.Path)
				utils.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Debugf("❌ Invalid authorization header format (parts: %d)", len(parts))
				utils.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := ParseToken(secret, parts[1])
			if err != nil {
				log.Infof("❌ Invalid token on %s %s", r.Method, r.URL.Path)
				utils.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), DriverContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks the authenticated role (must be used after Auth)
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetDriverFromContext(r)
			if !ok {
				utils.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if claims.Role != role {
				utils.Error(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetDriverFromContext extracts driver claims from request context
func GetDriverFromContext(r *http.Request) (DriverClaims, bool) {
	claims, ok := r.Context().Value(DriverContextKey).(DriverClaims)
	return claims, ok
}

// WithDriver returns ctx carrying claims, for handler tests
func WithDriver(ctx context.Context, claims DriverClaims) context.Context {
	return context.WithValue(ctx, DriverContextKey, claims)
}
