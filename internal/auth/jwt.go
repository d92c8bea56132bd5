package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// JWTValidator validates HS256 access tokens issued by the auth platform
type JWTValidator struct {
	secret      []byte
	issuer      string
	audience    string
	roleClaim   string
	defaultRole domain.UserRoleType
}

func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		audience:    cfg.Audience,
		roleClaim:   cfg.RoleClaim,
		defaultRole: domain.UserRoleType(cfg.DefaultRole),
	}
}

// ValidateToken validates a JWT token and returns user context
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims.GetSubject()
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	userCtx := &UserContext{
		UserID:      userID,
		Email:       extractString(claims, "email"),
		DisplayName: extractMetadataString(claims, "full_name", "name"),
		Roles:       ExtractRoles(claims, v.roleClaim),
	}
	if userCtx.DisplayName == "" {
		userCtx.DisplayName = userCtx.Email
	}
	if len(userCtx.Roles) == 0 && v.defaultRole != "" {
		userCtx.Roles = []domain.UserRoleType{v.defaultRole}
	}

	return userCtx, nil
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if str, ok := claims[key].(string); ok && str != "" {
			return str
		}
	}
	return ""
}

// extractMetadataString reads a value from user_metadata, falling back to top level claims
func extractMetadataString(claims jwt.MapClaims, keys ...string) string {
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		for _, key := range keys {
			if str, ok := meta[key].(string); ok && str != "" {
				return str
			}
		}
	}
	return extractString(claims, keys...)
}

// ExtractRoles reads application roles from roleClaim, app_metadata.roles or app_metadata.role.
// Unknown role names are dropped.
func ExtractRoles(claims jwt.MapClaims, roleClaim string) []domain.UserRoleType {
	var raw []string
	if roleClaim != "" {
		raw = append(raw, toStrings(claims[roleClaim])...)
	}
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		raw = append(raw, toStrings(meta["roles"])...)
		raw = append(raw, toStrings(meta["role"])...)
	}

	roles := []domain.UserRoleType{}
	seen := map[domain.UserRoleType]bool{}
	for _, r := range raw {
		role := domain.UserRoleType(strings.ToLower(strings.TrimSpace(r)))
		if !role.IsValid() || role == domain.RoleAPIService || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles
}

func toStrings(val interface{}) []string {
	switch v := val.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, r := range v {
			if str, ok := r.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
