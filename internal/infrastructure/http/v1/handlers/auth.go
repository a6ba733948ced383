package handlers

import (
	"github.com/gin-gonic/gin"

	"salesdesk/internal/domain/auth"
	"salesdesk/internal/infrastructure/http/v1/dto"
)

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), auth.Credentials{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTokenPair(tokens))
}
