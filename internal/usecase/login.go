package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/token"
)

// LoginResult mirrors the issuance endpoint response: the signed token
// plus the attributes it was minted from.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Username  string
	Roles     []string
	LabCode   string
}

// AuthService verifies credentials and mints identity tokens. Unknown
// users, wrong passwords and inactive accounts all yield the same
// ErrUnauthorized so the endpoint cannot be used to enumerate accounts.
type AuthService struct {
	users      domain.UserRepository
	hasher     domain.PasswordHasher
	issuer     *token.Issuer
	limiter    domain.RateLimiter
	rateLimit  int
	rateWindow time.Duration
	log        zerolog.Logger
}

func NewAuthService(
	users domain.UserRepository,
	hasher domain.PasswordHasher,
	issuer *token.Issuer,
	limiter domain.RateLimiter,
	rateLimit int,
	rateWindow time.Duration,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		issuer:     issuer,
		limiter:    limiter,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		log:        log,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password, remoteAddr string) (LoginResult, error) {
	if s.limiter != nil {
		key := fmt.Sprintf("login:user:%s:addr:%s", username, remoteAddr)
		decision, err := s.limiter.Allow(ctx, key, s.rateLimit, s.rateWindow)
		if err != nil {
			// Limiter outage must not take down logins.
			s.log.Warn().Err(err).Msg("login rate limiter unavailable")
		} else if !decision.Allowed {
			s.log.Warn().Str("username", username).Str("remote", remoteAddr).Msg("login throttled")
			return LoginResult{}, domain.ErrRateLimited
		}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return LoginResult{}, err
		}
		s.log.Warn().Str("username", username).Msg("login failed: unknown user")
		return LoginResult{}, domain.ErrUnauthorized
	}
	if !user.Active {
		s.log.Warn().Str("username", username).Msg("login failed: inactive user")
		return LoginResult{}, domain.ErrUnauthorized
	}
	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		s.log.Warn().Str("username", username).Msg("login failed: wrong password")
		return LoginResult{}, domain.ErrUnauthorized
	}

	issued, err := s.issuer.Issue(token.IssueRequest{
		Subject: user.Username,
		UserID:  user.ID,
		Roles:   user.RoleNames(),
		LabCode: user.LabCode,
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("username", username).Msg("login succeeded")
	return LoginResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		Roles:     issued.Roles,
		LabCode:   issued.LabCode,
	}, nil
}
