package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/kromedia/neo/pkg/config"
	"github.com/kromedia/neo/pkg/crypto"
	jwtpkg "github.com/kromedia/neo/pkg/jwt"
)

var (
	// ErrInvalidCredentials indicates the operator or access key was rejected.
	ErrInvalidCredentials = errors.New("invalid operator credentials")
	// ErrTokenRequired indicates an empty bearer token.
	ErrTokenRequired = errors.New("token required")
)

// Service authenticates operators against the shared access key.
type Service struct {
	logger  *slog.Logger
	keyHash string
	secret  string
	ttl     time.Duration
}

// New constructs a Service.
func New(logger *slog.Logger, cfg config.ServerConfig) Service {
	return Service{logger: logger, keyHash: cfg.OperatorKeyHash, secret: cfg.JWTSecret, ttl: cfg.AccessTokenTTL}
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	OperatorID  string
	ExpiresIn   time.Duration
}

// IssueToken verifies the access key and signs a token for operator.
func (s Service) IssueToken(ctx context.Context, operator, accessKey string) (Token, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" || accessKey == "" {
		return Token{}, ErrInvalidCredentials
	}
	if err := crypto.CompareAccessKey(s.keyHash, accessKey); err != nil {
		if errors.Is(err, crypto.ErrKeyNotConfigured) {
			return Token{}, err
		}
		s.logger.Warn("operator key rejected", "operator_id", operator)
		return Token{}, ErrInvalidCredentials
	}
	access, err := jwtpkg.GenerateToken(operator, s.secret, s.ttl)
	if err != nil {
		return Token{}, err
	}
	s.logger.Info("operator token issued", "operator_id", operator)
	return Token{AccessToken: access, OperatorID: operator, ExpiresIn: s.ttl}, nil
}

// Authorize validates a bearer token and returns its claims.
func (s Service) Authorize(ctx context.Context, token string) (*jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrTokenRequired
	}
	return jwtpkg.Parse(trimmed, s.secret)
}
