package auth

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenUser(role domain.Role) *domain.User {
	return &domain.User{ID: uuid.New(), Email: "u@campusdesk.ca", Role: role, IsActive: true}
}

func TestJWTService_GenerateToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()

	token, err := service.GenerateToken(ctx, tokenUser(domain.RoleStudent))
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Contains(t, token, ".")
}

func TestJWTService_ValidateToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	user := tokenUser(domain.RoleServiceHead)
	ctx := context.Background()

	token, err := service.GenerateToken(ctx, user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleServiceHead, claims.Role)
}

func TestJWTService_ValidateToken_InvalidToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Hour)
	require.NoError(t, err)

	_, err = service.ValidateToken(context.Background(), "invalid-token")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestJWTService_ValidateToken_WrongSecret(t *testing.T) {
	service1, err := NewJWTService([]byte("secret-1"), "test-issuer", time.Hour)
	require.NoError(t, err)

	service2, err := NewJWTService([]byte("secret-2"), "test-issuer", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := service1.GenerateToken(ctx, tokenUser(domain.RoleStudent))
	require.NoError(t, err)

	_, err = service2.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_ExpiredToken(t *testing.T) {
	service, err := NewJWTService([]byte("test-secret-key"), "test-issuer", time.Millisecond)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := service.GenerateToken(ctx, tokenUser(domain.RoleStudent))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = service.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_WrongIssuer(t *testing.T) {
	issued, err := NewJWTService([]byte("test-secret-key"), "issuer-a", time.Hour)
	require.NoError(t, err)

	verifier, err := NewJWTService([]byte("test-secret-key"), "issuer-b", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := issued.GenerateToken(ctx, tokenUser(domain.RoleStudent))
	require.NoError(t, err)

	_, err = verifier.ValidateToken(ctx, token)
	assert.Error(t, err)
}
