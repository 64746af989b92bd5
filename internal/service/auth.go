package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skvortsov-lab/auth_service/internal/events"
	"github.com/skvortsov-lab/auth_service/internal/hash"
	"github.com/skvortsov-lab/auth_service/internal/logging"
	"github.com/skvortsov-lab/auth_service/internal/models"
	"github.com/skvortsov-lab/auth_service/internal/repo"
	"github.com/skvortsov-lab/auth_service/internal/tokens"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials covers both unknown username and wrong
	// password; the two are never distinguished to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrTokenExpired   = errors.New("token expired")
	ErrTokenNotActive = errors.New("token revoked or superseded")
	ErrUnknownSubject = errors.New("token subject unknown")
)

type AuthService struct {
	Repo     repo.GormRepo
	Codec    *tokens.Codec
	Producer *events.Producer
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if p.Username == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(p.Password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	role := p.Role
	if role == "" {
		role = "user"
	}
	user := models.User{
		Username:     p.Username,
		PasswordHash: pwHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Role:         role,
	}

	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "status", 409, "reason", "username taken")
			return nil, ErrUsernameTaken
		}
		l.Error("register_failed", "status", 500, "error", err)
		return nil, err
	}

	pair, err := s.issuePair(ctx, &user)
	if err != nil {
		l.Error("register_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, &user, "user_registered")
	l.Info("register_successful", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, user, "user_logged_in")
	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// Refresh trades a live refresh token for a brand new pair. This is the
// only path from an existing pair to a new one: a revoked or expired
// refresh token can never be resurrected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Decode(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "decode", "error", err)
		return nil, err
	}

	if claims.Expired(time.Now().UTC()) {
		l.Warn("refresh_failed", "status", 401, "reason", "expired")
		return nil, ErrTokenExpired
	}

	user, err := s.Repo.FindUserByUsername(ctx, claims.Username())
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "unknown subject")
			return nil, ErrUnknownSubject
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	active, err := s.Repo.IsActive(ctx, refreshToken, models.KindRefresh)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	if !active {
		l.Warn("refresh_failed", "status", 401, "reason", "not active")
		return nil, ErrTokenNotActive
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, user, "token_refreshed")
	l.Info("refresh_successful", "user_id", user.ID)
	return pair, nil
}

// Logout revokes the presented access token. An empty or unknown token is
// a silent no-op: logout is idempotent and never reveals token validity.
// The sibling refresh token is deliberately left active (access-only
// logout); see DESIGN.md.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if accessToken == "" {
		return nil
	}

	if err := s.Repo.RevokeOne(ctx, accessToken); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return err
	}

	l.Info("logout_successful")
	return nil
}

// ValidateAccess checks everything that makes an access token usable:
// signature, structure, expiry and ledger activity. Both of the last two
// are mandatory and independent.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	claims, err := s.Codec.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Expired(time.Now().UTC()) {
		return nil, ErrTokenExpired
	}
	active, err := s.Repo.IsActive(ctx, accessToken, models.KindAccess)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrTokenNotActive
	}
	return claims, nil
}

// issuePair mints a fresh access/refresh pair and swaps it into the ledger
// atomically, revoking every prior entry for the user. This is where the
// at-most-one-active-pair invariant is enforced.
func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := s.Codec.IssueAccess(user.Username)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Codec.IssueRefresh(user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.ReplacePair(ctx, user.ID, accessToken, refreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) publish(ctx context.Context, user *models.User, eventType string) {
	event := map[string]interface{}{
		"type":     eventType,
		"user_id":  user.ID,
		"username": user.Username,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, fmt.Sprint(user.ID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
