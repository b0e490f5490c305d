package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/errcode"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/response"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type tokenRequest struct {
	APIKey  string `json:"api_key"`
	Subject string `json:"subject"`
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.APIKey == "" {
		response.Error(c, errcode.ErrInvalid, "api_key required")
		return
	}
	token, expiresIn, err := h.auth.ExchangeKey(c.Request.Context(), req.APIKey, req.Subject)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "expires_in": expiresIn})
}
