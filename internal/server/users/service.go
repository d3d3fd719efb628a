package users

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrutov/termgate/internal/server/auth"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/mkrutov/termgate/internal/shared"
)

// dummyHash is compared against when the username does not exist, so a
// missing user and a wrong password take the same code path.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("termgate-dummy"), bcrypt.DefaultCost)

// Service implements the credential and session store: user creation,
// password authentication, and issuing/verifying signed session tokens.
type Service struct {
	repo                  Repository
	jwtSecret             []byte
	tokenValidityDuration time.Duration
	homesDir              string
}

func NewService(repo Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                  repo,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
		homesDir:              cfg.HomesDir(),
	}
}

func (s *Service) claimsFor(user *User) *auth.Claims {
	return &auth.Claims{
		UserID:        user.ID,
		Username:      user.UserName,
		HomeDir:       user.HomeDir,
		APICredential: user.APICredential,
	}
}

// Authenticate verifies a username/password pair. A missing user and a bad
// password both return shared.ErrorInvalidLoginPassword so callers cannot
// enumerate usernames. On success the user's last-login timestamp is
// updated and session claims are returned.
func (s *Service) Authenticate(ctx context.Context, userName, password string) (*auth.Claims, error) {

	user, err := s.repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, shared.ErrorInvalidLoginPassword
		}
		return nil, fmt.Errorf("error reading registry: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, shared.ErrorInvalidLoginPassword
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("error updating last login: %w", err)
	}

	return s.claimsFor(user), nil
}

func (s *Service) validate(userName, password string) error {
	if strings.TrimSpace(userName) == "" {
		return fmt.Errorf("%w: empty username", shared.ErrorInvalidLoginPassword)
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", shared.ErrorInvalidLoginPassword)
	}
	return nil
}

func (s *Service) buildUser(userName, password, homeDir, apiCredential string) (*User, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	if homeDir == "" {
		homeDir = filepath.Join(s.homesDir, userName)
	}
	abs, err := filepath.Abs(homeDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving home directory: %w", err)
	}

	// the home directory is the user's sandbox root and must be writable
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("error creating home directory: %w", err)
	}

	return &User{
		UserName:      userName,
		PasswordHash:  hash,
		HomeDir:       abs,
		APICredential: apiCredential,
	}, nil
}

// CreateUser registers a new user. An empty homeDir defaults to a directory
// under the server's data dir, named after the user. Duplicate usernames
// yield shared.ErrorLoginAlreadyExists with the registry unchanged.
func (s *Service) CreateUser(ctx context.Context, userName, password, homeDir, apiCredential string) (*User, error) {

	if err := s.validate(userName, password); err != nil {
		return nil, err
	}

	user, err := s.buildUser(userName, password, homeDir, apiCredential)
	if err != nil {
		return nil, err
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, shared.ErrorLoginAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// CreateFirstUser is the one-time unauthenticated bootstrap. It fails with
// shared.ErrorSetupComplete once any user exists; the emptiness check and
// the insert are atomic in the repository.
func (s *Service) CreateFirstUser(ctx context.Context, userName, password, homeDir, apiCredential string) (*User, error) {

	if err := s.validate(userName, password); err != nil {
		return nil, err
	}

	user, err := s.buildUser(userName, password, homeDir, apiCredential)
	if err != nil {
		return nil, err
	}

	user, err = s.repo.CreateFirstUser(ctx, user)
	if err != nil {
		if errors.Is(err, shared.ErrorSetupComplete) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating first user: %w", err)
	}

	return user, nil
}

// HasAnyUser reports whether the registry contains at least one user. A
// registry read failure is returned as an error, never as "no users": the
// unauthenticated bootstrap path must stay closed while the registry's
// state cannot be confirmed.
func (s *Service) HasAnyUser(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("error reading registry: %w", err)
	}
	return n > 0, nil
}

// GetUser returns the registry record for a username.
func (s *Service) GetUser(ctx context.Context, userName string) (*User, error) {
	return s.repo.GetByUserName(ctx, userName)
}

// IssueToken signs the claims into an opaque session token string.
func (s *Service) IssueToken(claims *auth.Claims) (string, error) {
	return auth.GenerateToken(claims, s.jwtSecret, s.tokenValidityDuration)
}

// VerifyToken validates a token string and returns its claims; any invalid,
// malformed, or expired token maps to shared.ErrorInvalidToken.
func (s *Service) VerifyToken(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret)
}
