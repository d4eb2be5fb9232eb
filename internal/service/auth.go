package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/waycms/waycms/internal/adapter/email"
	"github.com/waycms/waycms/internal/config"
	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/user"
	"github.com/waycms/waycms/internal/port/database"
)

// AuthService handles password login, magic-link login, sessions and user
// administration. Session tokens and magic-link tokens are stored hashed;
// the plain token exists only in the response or the mail.
type AuthService struct {
	store      database.Store
	mailer     *email.Mailer
	baseURL    string
	bcryptCost int
	sessionTTL time.Duration
	magicTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates an AuthService from the auth config section.
func NewAuthService(store database.Store, mailer *email.Mailer, cfg config.Auth, baseURL string, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:      store,
		mailer:     mailer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		bcryptCost: cfg.BcryptCost,
		sessionTTL: cfg.SessionTTL,
		magicTTL:   cfg.MagicLinkTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates email and password and opens a session. Unknown email,
// missing password and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}

	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.HasPassword() {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	return s.openSession(ctx, u)
}

// openSession creates a session for an authenticated user and returns the
// bearer token.
func (s *AuthService) openSession(ctx context.Context, u *user.User) (*user.LoginResponse, error) {
	token := user.NewToken()
	now := s.now()
	sess := user.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: user.HashToken(token),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.store.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("touch last login", "user", u.ID, "error", err)
	}

	return &user.LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, User: *u}, nil
}

// Logout deletes the session behind a bearer token. Unknown tokens are a
// no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	sess, err := s.store.GetSessionByTokenHash(ctx, user.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.DeleteSession(ctx, sess.ID)
}

// UserForToken resolves a bearer token to its user. Expired sessions are
// deleted on sight.
func (s *AuthService) UserForToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	sess, err := s.store.GetSessionByTokenHash(ctx, user.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid session: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.store.DeleteSession(ctx, sess.ID)
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session user gone: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return u, nil
}

// RequestMagicLink mails a login link to the address if a matching user
// exists. The outcome is identical either way, so the endpoint does not leak
// which addresses are registered.
func (s *AuthService) RequestMagicLink(ctx context.Context, req user.MagicLinkRequest) error {
	if req.Email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrValidation)
	}
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("magic link requested for unknown email")
			return nil
		}
		return err
	}
	return s.SendLinkToUser(ctx, u)
}

// SendLinkToUser creates a magic link for a known user and mails it.
func (s *AuthService) SendLinkToUser(ctx context.Context, u *user.User) error {
	token, err := s.createLink(ctx, u)
	if err != nil {
		return err
	}
	if err := s.mailer.SendMagicLink(ctx, u.Email, s.loginURL(token), s.magicTTL); err != nil {
		return fmt.Errorf("mail magic link: %w", err)
	}
	return nil
}

// createLink stores a new magic link and returns the plain token.
func (s *AuthService) createLink(ctx context.Context, u *user.User) (string, error) {
	token := user.NewToken()
	now := s.now()
	link := user.MagicLink{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Token:     user.HashToken(token),
		ExpiresAt: now.Add(s.magicTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateMagicLink(ctx, link); err != nil {
		return "", fmt.Errorf("create magic link: %w", err)
	}
	return token, nil
}

func (s *AuthService) loginURL(token string) string {
	return s.baseURL + "/login/" + token
}

// RedeemMagicLink exchanges a magic-link token for a session. Each link works
// exactly once; the used flag flips atomically, so concurrent redemptions of
// the same link yield one session and one conflict.
func (s *AuthService) RedeemMagicLink(ctx context.Context, token string) (*user.LoginResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrValidation)
	}

	link, err := s.store.GetMagicLinkByToken(ctx, user.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid login link: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !link.Valid(s.now()) {
		return nil, fmt.Errorf("login link expired or already used: %w", domain.ErrUnauthorized)
	}
	if err := s.store.MarkMagicLinkUsed(ctx, link.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("login link already used: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	u, err := s.store.GetUser(ctx, link.UserID)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, u)
}

// CreateUser registers a user and, when mail is configured, sends a welcome
// link so the user can sign in without a password.
func (s *AuthService) CreateUser(ctx context.Context, req user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}

	var hash string
	if req.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(h)
	}

	u, err := s.store.CreateUser(ctx, req, hash)
	if err != nil {
		return nil, err
	}

	if s.mailer.Configured() {
		token, err := s.createLink(ctx, u)
		if err != nil {
			s.logger.Warn("welcome link", "user", u.ID, "error", err)
			return u, nil
		}
		if err := s.mailer.SendWelcome(ctx, u.Email, u.Name, s.loginURL(token), s.magicTTL); err != nil {
			s.logger.Warn("welcome mail", "user", u.ID, "error", err)
		}
	}
	return u, nil
}

// ListUsers returns every registered user.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetUserByEmail returns a user by email address.
func (s *AuthService) GetUserByEmail(ctx context.Context, addr string) (*user.User, error) {
	return s.store.GetUserByEmail(ctx, strings.ToLower(addr))
}

// UpdateUser changes a user's name or admin flag.
func (s *AuthService) UpdateUser(ctx context.Context, id string, req user.UpdateRequest) (*user.User, error) {
	return s.store.UpdateUser(ctx, id, req)
}

// ResetPassword replaces a user's password.
func (s *AuthService) ResetPassword(ctx context.Context, userID, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", domain.ErrValidation)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.SetPasswordHash(ctx, userID, string(h))
}

// DeleteUser removes a user. Self-deletion is rejected so an admin cannot
// lock themselves out mid-session.
func (s *AuthService) DeleteUser(ctx context.Context, actor *user.User, userID string) error {
	if actor.ID == userID {
		return fmt.Errorf("cannot delete the signed-in user: %w", domain.ErrValidation)
	}
	return s.store.DeleteUser(ctx, userID)
}

// CleanupExpired purges expired sessions and dead magic links. Meant to run
// alongside the backup sweep.
func (s *AuthService) CleanupExpired(ctx context.Context) {
	now := s.now()
	if n, err := s.store.DeleteExpiredSessions(ctx, now); err != nil {
		s.logger.Warn("cleanup sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("cleaned up sessions", "count", n)
	}
	if n, err := s.store.DeleteExpiredMagicLinks(ctx, now); err != nil {
		s.logger.Warn("cleanup magic links", "error", err)
	} else if n > 0 {
		s.logger.Info("cleaned up magic links", "count", n)
	}
}
