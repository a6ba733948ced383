package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"salesdesk/internal/core/apperror"
	"salesdesk/pkg/logger"
)

// Operator is an API user. Operators are provisioned through configuration
// or the seed tool; there is no self-service registration.
type Operator struct {
	ID           string
	Name         string
	PasswordHash string
}

// Credentials is the login input.
type Credentials struct {
	Name     string
	Password string
}

// TokenPair is the login result.
type TokenPair struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}

// Service authenticates operators and issues access tokens.
type Service struct {
	operators  map[string]Operator
	jwtService *JWTService
}

// NewService creates a new auth service.
func NewService(operators []Operator, jwtService *JWTService) *Service {
	byName := make(map[string]Operator, len(operators))
	for _, op := range operators {
		byName[op.Name] = op
	}
	return &Service{
		operators:  byName,
		jwtService: jwtService,
	}
}

// Login verifies credentials and returns an access token.
// Unknown operator and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	op, ok := s.operators[creds.Name]
	if !ok {
		// Burn a comparison anyway so lookups take the same time.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(creds.Password))
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(creds.Password)); err != nil {
		logger.Warn(ctx, "failed login attempt", "operator", creds.Name)
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(op.ID, op.Name)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "operator logged in", "operator", op.Name)

	return &TokenPair{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
	}, nil
}
