package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/jwt"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
	ChangePassword(ctx context.Context, actor model.Actor, oldPassword, newPassword string) error
	Logout(ctx context.Context, actor model.Actor) error
}

// MinPasswordLength applies to every password set through the API or CLI.
const MinPasswordLength = 6

type LoginResponse struct {
	Token       string             `json:"token"`
	User        model.UserResponse `json:"user"`
	Permissions []policy.Operation `json:"permissions"` // Flat list for the client to toggle screens
}

type TokenValidationResponse struct {
	User        model.UserResponse `json:"user"`
	Permissions []policy.Operation `json:"permissions"`
}

type authService struct {
	userRepo repository.UserRepository
	signer   *jwt.Signer
	activity ActivityLogger
	events   EventPublisher
	log      zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, signer *jwt.Signer, activity ActivityLogger, events EventPublisher, log zerolog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		signer:   signer,
		activity: activity,
		events:   events,
		log:      log,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single Session: Generate New Token Version
	newTokenVersion := uuid.New().String()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, newTokenVersion); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	now := utcNow()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("could not stamp last login")
	}
	user.TokenVersion = newTokenVersion
	user.LastLoginAt = &now

	// 5. Generate JWT token with TokenVersion
	token, err := s.signer.GenerateToken(user.ID, user.Email, user.DisplayName, user.RoleCode(), newTokenVersion)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	actor := user.Actor()
	s.activity.Record(actor, model.ActionLogin, "Signed in")
	s.events.Publish(ws.Event{
		Type:    "user_status_update",
		Action:  "login",
		User:    eventUser(actor),
		Message: fmt.Sprintf("%s signed in", actor.Label()),
	})

	return &LoginResponse{
		Token:       token,
		User:        user.ToResponse(),
		Permissions: policy.Permissions(user.RoleCode()),
	}, nil
}

// Authenticate resolves a bearer token to an active user holding the
// current session.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	// 1. Validate JWT token
	claims, err := s.signer.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	// 2. Find user by ID from token claims
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	// 3. Check if user is still active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 4. Check against DB for strict session (TokenVersion)
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return user, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:        user.ToResponse(),
		Permissions: policy.Permissions(user.RoleCode()),
	}, nil
}

// ChangePassword replaces the caller's own password after checking the old
// one. Every outstanding token, including the caller's, stops working.
func (s *authService) ChangePassword(ctx context.Context, actor model.Actor, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return invalid("new password must be at least %d characters", MinPasswordLength)
	}

	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}

	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String()); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.activity.Record(actor, model.ActionPasswordChanged, "Changed own password")
	s.log.Info().Str("user_id", actor.ID()).Msg("password changed")
	return nil
}

// Logout ends the caller's session by rotating the token version.
func (s *authService) Logout(ctx context.Context, actor model.Actor) error {
	if err := s.userRepo.UpdateTokenVersion(ctx, actor.UserID, uuid.New().String()); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	s.activity.Record(actor, model.ActionLogout, "Signed out")
	s.events.Publish(ws.Event{
		Type:    "user_status_update",
		Action:  "logout",
		User:    eventUser(actor),
		Message: fmt.Sprintf("%s signed out", actor.Label()),
	})
	return nil
}
