package auth

import (
	"fmt"
	"time"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/golang-jwt/jwt/v4"
)

// RoleOperator grants access to every tenant and the admin endpoints
const RoleOperator = "operator"

// Claims identify the caller of a request
type Claims struct {
	UserID   string
	TenantID string
	Operator bool
}

// TokenValidator checks session JWTs signed with the shared auth secret
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(cfg *config.Configuration) *TokenValidator {
	return &TokenValidator{secret: []byte(cfg.Auth.Secret)}
}

func (v *TokenValidator) ValidateToken(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ierr.NewError("auth secret is not configured").
			WithHint("Token authentication is not available").
			Mark(ierr.ErrPermissionDenied)
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrPermissionDenied)
	}
	tenantID, _ := claims["tenant_id"].(string)
	role, _ := claims["role"].(string)
	operator := role == RoleOperator

	if tenantID == "" && !operator {
		return nil, ierr.NewError("token missing tenant ID").
			WithHint("Token missing tenant ID").
			Mark(ierr.ErrPermissionDenied)
	}

	return &Claims{UserID: userID, TenantID: tenantID, Operator: operator}, nil
}

// GenerateToken signs a session token, used by tooling and tests
func (v *TokenValidator) GenerateToken(userID, tenantID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":   userID,
		"tenant_id": tenantID,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
