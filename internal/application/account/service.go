package account

import (
	"context"
	"fmt"

	"github.com/crm-web/internal/domain"
	jwtinfra "github.com/crm-web/internal/infrastructure/jwt"
	"go.uber.org/zap"
)

// Backend is the subset of the API client the account forms need.
type Backend interface {
	Register(ctx context.Context, in domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, in domain.LoginRequest) (*domain.AccessToken, error)
}

// TokenInspector decodes the access token returned by Login.
type TokenInspector interface {
	Inspect(tokenStr string) (*jwtinfra.Claims, error)
	Verifies() bool
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error)
}

type service struct {
	backend   Backend
	inspector TokenInspector
	log       *zap.Logger
}

func NewService(backend Backend, inspector TokenInspector, log *zap.Logger) Service {
	return &service{backend: backend, inspector: inspector, log: log}
}

// Register forwards the form as-is; the backend owns every rule about it.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	u, err := s.backend.Register(ctx, req)
	if err != nil {
		s.log.Warn("register failed", zap.String("email", req.Email), zap.Error(err))
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info("registered", zap.Int("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	tok, err := s.backend.Login(ctx, req)
	if err != nil {
		s.log.Warn("login failed", zap.String("email", req.Email), zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}
	claims, err := s.inspector.Inspect(tok.AccessToken)
	if err != nil {
		s.log.Error("backend returned an unreadable access token", zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}
	sess := &domain.Session{
		Email:     claims.Email(),
		ExpiresAt: claims.Expiry(),
		Verified:  s.inspector.Verifies(),
		Token:     *tok,
	}
	s.log.Info("logged in", zap.String("email", sess.Email), zap.Time("expires_at", sess.ExpiresAt))
	return sess, nil
}
