package dto

import (
	"time"

	"salesdesk/internal/domain/auth"
)

// LoginRequest authenticates an operator.
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}

// FromTokenPair converts the domain token pair.
func FromTokenPair(t *auth.TokenPair) LoginResponse {
	return LoginResponse{
		AccessToken: t.AccessToken,
		ExpiresAt:   t.ExpiresAt,
		TokenType:   t.TokenType,
	}
}
