package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobflow-backend/internal/config"
	"jobflow-backend/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "jobflow-test"
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())

	token, err := m.GenerateToken(&models.Actor{
		UserID:      42,
		Email:       "alice@example.com",
		Role:        models.RoleEmployee,
		Permissions: []string{models.PermissionFilePause},
	})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "jobflow-test", claims.Issuer)

	actor := claims.Actor()
	assert.Equal(t, []string{models.PermissionFilePause}, actor.Permissions)
}

func TestActorFallsBackToRolePermissions(t *testing.T) {
	c := &Claims{UserID: 1, Role: models.RoleAdmin}
	assert.Equal(t, []string{models.PermissionAll}, c.Actor().Permissions)

	c = &Claims{UserID: 2, Role: models.RoleEmployee}
	assert.ElementsMatch(t, models.EmployeePermissions, c.Actor().Permissions)

	c = &Claims{UserID: 3, Role: "guest"}
	assert.Empty(t, c.Actor().Permissions)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig()).GenerateToken(&models.Actor{UserID: 1})
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "another-secret"
	_, err = NewJWTManager(other).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig()).ValidateToken(signed)
	assert.Error(t, err)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name   string
		action string
		perms  []string
		want   bool
	}{
		{"exact", models.PermissionFilePause, []string{models.PermissionFilePause}, true},
		{"missing", models.PermissionFileFinish, []string{models.PermissionFilePause}, false},
		{"all", models.PermissionJobCreate, []string{models.PermissionAll}, true},
		{"namespace wildcard", models.PermissionFileTransfer, []string{"file:*"}, true},
		{"wildcard other namespace", models.PermissionJobCreate, []string{"file:*"}, false},
		{"empty", models.PermissionFileList, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.action, tt.perms))
		})
	}
}
