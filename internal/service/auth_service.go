package service

import (
	"context"
	"time"

	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/apikey"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/token"
)

type AuthService struct {
	apiKeyHash  string
	tokenSecret []byte
	tokenTTL    time.Duration
}

func NewAuthService(apiKeyHash string, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{apiKeyHash: apiKeyHash, tokenSecret: secret, tokenTTL: ttl}
}

// ExchangeKey trades the configured API key for a short-lived service token.
// The key itself is never stored, only its bcrypt hash.
func (s *AuthService) ExchangeKey(ctx context.Context, key, subject string) (string, int64, error) {
	if err := apikey.Compare(s.apiKeyHash, key); err != nil {
		return "", 0, appErr.ErrUnauthorized
	}
	if subject == "" {
		subject = "service"
	}
	tok, err := token.Generate(subject, s.tokenSecret, s.tokenTTL)
	if err != nil {
		return "", 0, err
	}
	return tok, int64(s.tokenTTL.Seconds()), nil
}
