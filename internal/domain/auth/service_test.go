package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"salesdesk/internal/core/apperror"
)

func testService(t *testing.T) *Service {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))
	return NewService([]Operator{
		{ID: "1", Name: "alice", PasswordHash: string(hash)},
	}, jwtService)
}

func TestLogin_Success(t *testing.T) {
	svc := testService(t)

	tokens, err := svc.Login(context.Background(), Credentials{Name: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.True(t, tokens.ExpiresAt.After(time.Now()))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := testService(t)

	_, err := svc.Login(context.Background(), Credentials{Name: "alice", Password: "wrong"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLogin_UnknownOperator(t *testing.T) {
	svc := testService(t)

	_, err := svc.Login(context.Background(), Credentials{Name: "mallory", Password: "anything"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestJWT_RoundTrip(t *testing.T) {
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := jwtService.GenerateAccessToken("1", "alice")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "1", user.UserID)
	assert.Equal(t, "alice", user.Name)
}

func TestJWT_RejectsForeignSignature(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken("1", "alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestJWT_RejectsGarbage(t *testing.T) {
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))

	_, err := jwtService.ValidateToken("not-a-token")
	require.Error(t, err)
}
