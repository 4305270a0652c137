package service

import (
	"context"
	"testing"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/policy"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/testutil"
	"go-pos-ledger/pkg/jwt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identityHarness struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	auth     AuthService
	user     UserService
	activity *captureActivity
}

func newIdentityHarness(t *testing.T) *identityHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	h := &identityHarness{
		users:    repository.NewUserRepo(db),
		roles:    repository.NewRoleRepo(db),
		activity: &captureActivity{},
	}
	require.NoError(t, h.roles.SeedDefaults(context.Background()))
	signer := jwt.NewSigner("test-secret", "go-pos-ledger-test", time.Hour)
	h.auth = NewAuthService(h.users, signer, h.activity, &capturePublisher{}, zerolog.Nop())
	h.user = NewUserService(h.users, h.roles, h.activity)
	return h
}

func (h *identityHarness) createUser(t *testing.T, email, role string) *model.UserResponse {
	t.Helper()
	user, err := h.user.CreateUser(context.Background(), admin, &CreateUserRequest{
		Email:       email,
		Password:    "secret123",
		DisplayName: "Test " + role,
		Role:        role,
	})
	require.NoError(t, err)
	return user
}

func TestAuth_Login(t *testing.T) {
	h := newIdentityHarness(t)
	ctx := context.Background()
	h.createUser(t, "clerk@shop.test", model.RoleEntryOnly)

	resp, err := h.auth.Login(ctx, " Clerk@Shop.test ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleEntryOnly, resp.User.Role)
	assert.Equal(t, policy.Permissions(model.RoleEntryOnly), resp.Permissions)
	assert.NotNil(t, resp.User.LastLoginAt)

	validated, err := h.auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "clerk@shop.test", validated.User.Email)

	assert.Contains(t, h.activity.actions(), model.ActionLogin)
}

func TestAuth_LoginFailures(t *testing.T) {
	h := newIdentityHarness(t)
	ctx := context.Background()
	created := h.createUser(t, "clerk@shop.test", model.RoleEntryOnly)

	_, err := h.auth.Login(ctx, "clerk@shop.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.auth.Login(ctx, "nobody@shop.test", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	inactive := false
	_, err = h.user.UpdateUser(ctx, admin, created.ID, &UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, "clerk@shop.test", "secret123")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuth_SingleSession(t *testing.T) {
	// GIVEN: A user logged in on one terminal
	// WHEN: They log in again elsewhere
	// THEN: The first token stops working

	h := newIdentityHarness(t)
	ctx := context.Background()
	h.createUser(t, "manager@shop.test", model.RoleManager)

	first, err := h.auth.Login(ctx, "manager@shop.test", "secret123")
	require.NoError(t, err)
	second, err := h.auth.Login(ctx, "manager@shop.test", "secret123")
	require.NoError(t, err)

	_, err = h.auth.ValidateToken(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	user, err := h.auth.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, user.Actor().Role)
}

func TestAuth_GarbageToken(t *testing.T) {
	h := newIdentityHarness(t)

	_, err := h.auth.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = h.auth.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)
}

func TestAuth_ChangePassword(t *testing.T) {
	// GIVEN: A signed-in clerk
	// WHEN: They change their own password
	// THEN: The old token and old password stop working, the new password signs in

	h := newIdentityHarness(t)
	ctx := context.Background()
	h.createUser(t, "clerk@shop.test", model.RoleEntryOnly)

	session, err := h.auth.Login(ctx, "clerk@shop.test", "secret123")
	require.NoError(t, err)
	user, err := h.auth.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, h.auth.ChangePassword(ctx, user.Actor(), "secret123", "n3w-secret"))

	_, err = h.auth.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = h.auth.Login(ctx, "clerk@shop.test", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.auth.Login(ctx, "clerk@shop.test", "n3w-secret")
	require.NoError(t, err)

	assert.Contains(t, h.activity.actions(), model.ActionPasswordChanged)
}

func TestAuth_ChangePasswordRejections(t *testing.T) {
	h := newIdentityHarness(t)
	ctx := context.Background()
	created := h.createUser(t, "clerk@shop.test", model.RoleEntryOnly)
	actor := model.Actor{UserID: created.ID, Name: created.DisplayName, Email: created.Email, Role: created.Role}

	err := h.auth.ChangePassword(ctx, actor, "wrong", "n3w-secret")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = h.auth.ChangePassword(ctx, actor, "secret123", "short")
	assert.ErrorIs(t, err, ErrValidation)

	stranger := model.Actor{UserID: uuid.New(), Role: model.RoleEntryOnly}
	err = h.auth.ChangePassword(ctx, stranger, "secret123", "n3w-secret")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = h.auth.Login(ctx, "clerk@shop.test", "secret123")
	require.NoError(t, err, "rejected changes leave the password alone")
	assert.NotContains(t, h.activity.actions(), model.ActionPasswordChanged)
}

func TestAuth_Logout(t *testing.T) {
	h := newIdentityHarness(t)
	ctx := context.Background()
	h.createUser(t, "manager@shop.test", model.RoleManager)

	session, err := h.auth.Login(ctx, "manager@shop.test", "secret123")
	require.NoError(t, err)
	user, err := h.auth.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, user.Actor()))

	_, err = h.auth.ValidateToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Contains(t, h.activity.actions(), model.ActionLogout)
}
