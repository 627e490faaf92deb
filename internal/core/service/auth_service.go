package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
	"github.com/decksmith/deck-api/internal/core/security"
	"github.com/decksmith/deck-api/internal/pkg/async"
	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

// Sign-in stages, as they appear in logs.
const (
	stageStarted          = "started"
	stageCredentialLookup = "credential_lookup"
	stagePasswordCheck    = "password_check"
	stageTokenIssued      = "token_issued"
	stageRejected         = "rejected"
)

var errIssueToken = errors.New("issue token")

// AuthService implements registration and sign-in.
type AuthService struct {
	users  ports.CredentialStore
	hasher ports.PasswordHasher
	codec  ports.TokenCodec
	log    zerolog.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.CredentialStore, hasher ports.PasswordHasher, codec ports.TokenCodec, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		codec:  codec,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// SignUp registers a new active user with the default roles. The email is
// stored lower-cased.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		metrics.SignUpTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if len(password) > domain.MaxPasswordBytes {
		metrics.SignUpTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrPasswordTooLong
	}

	taken, err := async.All(
		s.users.ExistsByUsername(ctx, username),
		s.users.ExistsByEmail(ctx, email),
	).Await(ctx)
	if err != nil {
		metrics.SignUpTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if taken[0] || taken[1] {
		metrics.SignUpTotal.WithLabelValues("user_exists").Inc()
		return nil, domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		metrics.SignUpTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        domain.DefaultRoles(),
	}
	user.Status = domain.StatusActive

	created, err := s.users.Insert(ctx, user).Await(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			metrics.SignUpTotal.WithLabelValues("user_exists").Inc()
			return nil, domain.ErrUserExists
		}
		metrics.SignUpTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SignUpTotal.WithLabelValues("created").Inc()
	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// SignIn verifies the credentials and issues a session token. The returned
// context carries the security context of the authenticated principal.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (context.Context, *domain.Authentication, error) {
	username = strings.TrimSpace(username)
	log := s.log.With().Str("username", username).Logger()
	log.Debug().Str("stage", stageStarted).Msg("sign-in")

	if username == "" || password == "" {
		s.reject(log, stagePasswordCheck, domain.ErrInvalidCredentials)
		return ctx, nil, domain.ErrInvalidCredentials
	}

	user := async.Then(s.users.FindByUsername(ctx, username), func(u *domain.User) (*domain.User, error) {
		if u == nil {
			return nil, domain.ErrUserNotFound
		}
		return u, nil
	})
	verified := async.Then(user, func(u *domain.User) (*domain.User, error) {
		if !s.hasher.Verify(u.PasswordHash, password) {
			return nil, domain.ErrInvalidCredentials
		}
		return u, nil
	})
	issued := async.Then(verified, func(u *domain.User) (*domain.Authentication, error) {
		token, claims, err := s.codec.Issue(domain.ClaimsFor(u))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errIssueToken, err)
		}
		return &domain.Authentication{Principal: u.Principal(), Token: token, Claims: claims}, nil
	})

	auth, err := issued.Await(ctx)
	if err != nil {
		s.reject(log, failedStage(err), err)
		return ctx, nil, err
	}

	metrics.SignInTotal.WithLabelValues(stageTokenIssued).Inc()
	log.Info().Str("stage", stageTokenIssued).Str("user_id", auth.Principal.ID).
		Time("expires_at", auth.Claims.ExpiresAt).Msg("sign-in")
	return security.WithContext(ctx, security.FromAuthentication(auth)), auth, nil
}

func (s *AuthService) reject(log zerolog.Logger, stage string, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		outcome = "user_not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		outcome = "invalid_credentials"
	}
	metrics.SignInTotal.WithLabelValues(outcome).Inc()

	ev := log.Info()
	if outcome == "error" {
		ev = log.Error()
	}
	ev.Str("stage", stageRejected).Str("failed_stage", stage).Err(err).Msg("sign-in")
}

func failedStage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return stageCredentialLookup
	case errors.Is(err, domain.ErrInvalidCredentials):
		return stagePasswordCheck
	case errors.Is(err, errIssueToken):
		return "token_issue"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return stageStarted
	default:
		return stageCredentialLookup
	}
}
