package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	CreateUser(ctx context.Context, actor model.Actor, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, actor model.Actor, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	GetRoles(ctx context.Context) ([]model.Role, error)
}

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"required,notblank"`
	Role        string `json:"role" validate:"required,oneof=admin manager entry-only"`
}

// UpdateUserRequest only changes the fields that are present
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,notblank"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role        *string `json:"role" validate:"omitempty,oneof=admin manager entry-only"`
	IsActive    *bool   `json:"isActive"`
}

type userService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	activity ActivityLogger
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, activity ActivityLogger) UserService {
	return &userService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		activity: activity,
	}
}

func (s *userService) CreateUser(ctx context.Context, actor model.Actor, req *CreateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.UserManage); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 2. Check if email already exists
	if existing, _ := s.userRepo.FindByEmail(ctx, email); existing != nil {
		return nil, ErrEmailExists
	}

	// 3. Validate role exists
	role, err := s.roleRepo.FindByCode(ctx, req.Role)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	// 4. Create user
	user := &model.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		RoleID:      &role.ID,
		IsActive:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	user.Role = role

	s.activity.Record(actor, model.ActionUserCreated, fmt.Sprintf("Created user %s (%s)", user.Email, role.Code))
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor model.Actor, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := policy.Check(actor.Role, policy.UserManage); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Role != nil {
		role, err := s.roleRepo.FindByCode(ctx, *req.Role)
		if err != nil {
			return nil, ErrRoleNotFound
		}
		fields["role_id"] = role.ID
	}
	if req.IsActive != nil {
		if !*req.IsActive && user.ID == actor.UserID {
			return nil, invalid("you cannot deactivate your own account")
		}
		fields["is_active"] = *req.IsActive
		if !*req.IsActive {
			// Deactivation ends the current session
			fields["token_version"] = uuid.New().String()
		}
	}
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["password"] = user.Password
	}

	if len(fields) > 0 {
		if err := s.userRepo.Update(ctx, userID, fields); err != nil {
			return nil, err
		}
	}

	updated, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.activity.Record(actor, model.ActionUserUpdated, fmt.Sprintf("Updated user %s", updated.Email))
	response := updated.ToResponse()
	return &response, nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) GetRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.FindAll(ctx)
}
