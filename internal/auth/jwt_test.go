package auth_test

import (
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-signing-key-for-tests"

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:   testSecret,
		Audience:    "authenticated",
		RoleClaim:   "user_role",
		DefaultRole: "viewer",
	}
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func baseClaims(sub uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub.String(),
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "ana@example.com",
		"user_metadata": map[string]interface{}{
			"full_name": "Ana Ruiz",
		},
	}
}

func TestValidateToken_ReadsIdentityAndRoles(t *testing.T) {
	v := auth.NewJWTValidator(testAuthConfig())
	sub := uuid.New()
	claims := baseClaims(sub)
	claims["user_role"] = "manager"
	claims["app_metadata"] = map[string]interface{}{"roles": []interface{}{"staff", "api_service", "unknown"}}

	user, err := v.ValidateToken(signToken(t, claims, testSecret))
	require.NoError(t, err)
	assert.Equal(t, sub, user.UserID)
	assert.Equal(t, "Ana Ruiz", user.DisplayName)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, []domain.UserRoleType{domain.RoleManager, domain.RoleStaff}, user.Roles)
}

func TestValidateToken_DefaultRole(t *testing.T) {
	v := auth.NewJWTValidator(testAuthConfig())

	user, err := v.ValidateToken(signToken(t, baseClaims(uuid.New()), testSecret))
	require.NoError(t, err)
	assert.Equal(t, []domain.UserRoleType{domain.RoleViewer}, user.Roles)
	assert.False(t, user.HasPermission(domain.PermissionPaymentsCollect))
	assert.True(t, user.HasPermission(domain.PermissionPaymentsRead))
}

func TestValidateToken_Rejects(t *testing.T) {
	v := auth.NewJWTValidator(testAuthConfig())

	expired := baseClaims(uuid.New())
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongAudience := baseClaims(uuid.New())
	wrongAudience["aud"] = "anon"

	badSubject := baseClaims(uuid.New())
	badSubject["sub"] = "not-a-uuid"

	noExpiry := baseClaims(uuid.New())
	delete(noExpiry, "exp")

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"expired", signToken(t, expired, testSecret), auth.ErrExpiredToken},
		{"wrong secret", signToken(t, baseClaims(uuid.New()), "another-secret"), auth.ErrInvalidToken},
		{"wrong audience", signToken(t, wrongAudience, testSecret), auth.ErrInvalidToken},
		{"bad subject", signToken(t, badSubject, testSecret), auth.ErrInvalidToken},
		{"missing expiry", signToken(t, noExpiry, testSecret), auth.ErrInvalidToken},
		{"garbage", "not.a.token", auth.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHasPermission_AdminHasAll(t *testing.T) {
	admin := &auth.UserContext{Roles: []domain.UserRoleType{domain.RoleAdmin}}
	assert.True(t, admin.HasPermission(domain.PermissionSystemAuditLogs))

	tech := &auth.UserContext{Roles: []domain.UserRoleType{domain.RoleTechnician}}
	assert.True(t, tech.HasPermission(domain.PermissionOrdersWrite))
	assert.False(t, tech.HasPermission(domain.PermissionInvestorsRead))
}
