package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harbordocs/harbor/internal/auth"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
)

// AccountService runs the Google login flow and session token lifecycle.
type AccountService struct {
	userRepo *repository.UserRepository
	google   *auth.GoogleClient
	jwt      *auth.JWTManager
	logger   *logger.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	userRepo *repository.UserRepository,
	google *auth.GoogleClient,
	jwt *auth.JWTManager,
	log *logger.Logger,
) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		google:   google,
		jwt:      jwt,
		logger:   log.WithField("component", "account"),
	}
}

// ConsentURL returns the Google consent page URL for the given state.
func (s *AccountService) ConsentURL(state string) string {
	return s.google.ConsentURL(state)
}

// LoginResult is the outcome of a completed OAuth callback.
type LoginResult struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// HandleCallback completes the OAuth flow: exchange the code, load the
// Google profile, upsert the user, store the Drive credentials, and issue a
// session token pair. A Google account seen before keeps its user ID; a
// callback without a refresh token keeps the previously stored one.
func (s *AccountService) HandleCallback(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	tokens, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.google.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user, err := s.userRepo.GetByGoogleID(ctx, profile.ID)
	switch {
	case repository.IsNotFound(err):
		user = &domain.User{
			ID:           uuid.NewString(),
			GoogleID:     profile.ID,
			Email:        profile.Email,
			Name:         profile.Name,
			AvatarURL:    profile.Picture,
			Role:         domain.RoleUser,
			GoogleTokens: *tokens,
			LastLogin:    &now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.WithField("user_id", user.ID).Info("user registered")
	case err != nil:
		return nil, err
	default:
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = user.GoogleTokens.RefreshToken
		}
		user.Email = profile.Email
		user.Name = profile.Name
		user.AvatarURL = profile.Picture
		user.GoogleTokens = *tokens
		user.LastLogin = &now
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	pair, err := s.jwt.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh validates a refresh token and issues a fresh pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	// The user must still exist; deleted accounts can't mint sessions.
	if _, err := s.userRepo.GetByID(ctx, claims.UserID); err != nil {
		return nil, err
	}

	return s.jwt.IssuePair(claims.UserID)
}

// GetUser loads a user by ID.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile changes the user-editable profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of all accounts, newest first. Callers enforce
// admin authorization.
func (s *AccountService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	return s.userRepo.List(ctx, limit, offset)
}
