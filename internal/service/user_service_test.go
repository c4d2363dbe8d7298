package service

import (
	"context"
	"testing"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_SeedAdminAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.SeedAdmin(ctx, "", "", ""))
	_, total, err := env.users.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, env.users.SeedAdmin(ctx, "owner", "", "s3cret-pass"))
	require.NoError(t, env.users.SeedAdmin(ctx, "owner", "", "ignored-on-rerun"))
	users, total, err := env.users.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "owner@localhost", users[0].Email)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	_, err = env.users.Login(ctx, LoginRequest{Login: "owner", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	tokens, err := env.users.Login(ctx, LoginRequest{Login: "OWNER@localhost", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), tokens.ExpiresAt, time.Minute)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokens.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID.String(), claims["sub"])
	assert.Equal(t, model.RoleAdmin, claims["role"])
	assert.Equal(t, "owner", claims["username"])
}

func TestUserService_RefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.SeedAdmin(ctx, "owner", "owner@shop.co", "s3cret-pass"))

	tokens, err := env.users.Login(ctx, LoginRequest{Login: "owner", Password: "s3cret-pass"})
	require.NoError(t, err)

	rotated, err := env.users.Refresh(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = env.users.Refresh(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.users.Logout(ctx, rotated.RefreshToken))
	_, err = env.users.Refresh(ctx, RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserService_CreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staff, err := env.users.CreateUser(ctx, SystemActor, CreateUserRequest{
		Username: "maria",
		Email:    "Maria@Shop.co",
		FullName: "Maria Ruiz",
		Password: "password-1",
		Role:     model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "maria@shop.co", staff.Email)

	_, err = env.users.CreateUser(ctx, SystemActor, CreateUserRequest{
		Username: "maria", Email: "other@shop.co", Password: "password-1", Role: model.RoleStaff,
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.users.CreateUser(ctx, SystemActor, CreateUserRequest{
		Username: "pedro", Email: "pedro@shop.co", Password: "password-1", Role: "owner",
	})
	assert.ErrorIs(t, err, ErrValidation)

	self := Actor{UserID: &staff.ID, Username: staff.Username}
	inactive := false
	_, err = env.users.UpdateUser(ctx, self, staff.ID, UpdateUserRequest{Active: &inactive})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, env.users.DeleteUser(ctx, self, staff.ID), ErrValidation)

	updated, err := env.users.UpdateUser(ctx, SystemActor, staff.ID, UpdateUserRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = env.users.Login(ctx, LoginRequest{Login: "maria", Password: "password-1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.users.DeleteUser(ctx, SystemActor, staff.ID))
	_, err = env.users.GetUserByID(ctx, staff.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	logs, total, err := env.audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionDeleteUser})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "system", logs[0].Username)
}

func TestRoleService_SeedAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.roles.SeedDefaultRolesAndPermissions(ctx))

	adminPerms, err := env.roles.GetPermissionsByRoleName(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, adminPerms, len(defaultPermissions))

	staffPerms, err := env.roles.GetPermissionsByRoleName(ctx, model.RoleStaff)
	require.NoError(t, err)
	assert.Contains(t, staffPerms, "sales.write")
	assert.NotContains(t, staffPerms, "users.write")

	role, err := env.roles.UpdateRolePermissions(ctx, model.RoleStaff, UpdateRolePermissionsRequest{Codes: []string{"orders.read"}})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, role.Name)

	// reseeding keeps the customised staff role
	require.NoError(t, env.roles.SeedDefaultRolesAndPermissions(ctx))
	staffPerms, err = env.roles.GetPermissionsByRoleName(ctx, model.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders.read"}, staffPerms)

	_, err = env.roles.UpdateRolePermissions(ctx, model.RoleStaff, UpdateRolePermissionsRequest{Codes: []string{"rockets.launch"}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.roles.UpdateRolePermissions(ctx, model.RoleAdmin, UpdateRolePermissionsRequest{Codes: []string{}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.roles.UpdateRolePermissions(ctx, "guest", UpdateRolePermissionsRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	roles, err := env.roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)
	perms, err := env.roles.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(defaultPermissions))
}
