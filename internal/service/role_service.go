package service

import (
	"context"
	"fmt"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/google/uuid"
)

type UpdateRolePermissionsRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	UpdateRolePermissions(ctx context.Context, roleName string, req UpdateRolePermissionsRequest) (*model.Role, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	txManager repository.TransactionManager
}

func NewRoleService(repo repository.RoleRepository, txManager repository.TransactionManager) RoleService {
	return &roleService{repo: repo, txManager: txManager}
}

var defaultPermissions = []model.Permission{
	{Code: "dashboard.read", Name: "View dashboard and statistics", Group: "dashboard"},
	{Code: "clients.read", Name: "View clients", Group: "clients"},
	{Code: "clients.write", Name: "Manage clients", Group: "clients"},
	{Code: "inventory.read", Name: "View inventory", Group: "inventory"},
	{Code: "inventory.write", Name: "Manage products and stock", Group: "inventory"},
	{Code: "orders.read", Name: "View orders", Group: "orders"},
	{Code: "orders.write", Name: "Manage orders", Group: "orders"},
	{Code: "payments.read", Name: "View payments", Group: "payments"},
	{Code: "payments.write", Name: "Record payments", Group: "payments"},
	{Code: "sales.read", Name: "View sales", Group: "sales"},
	{Code: "sales.write", Name: "Record sales", Group: "sales"},
	{Code: "reports.read", Name: "Export reports", Group: "reports"},
	{Code: "reports.write", Name: "Import spreadsheets", Group: "reports"},
	{Code: "users.read", Name: "View users", Group: "users"},
	{Code: "users.write", Name: "Manage users", Group: "users"},
	{Code: "audit.read", Name: "View audit trail", Group: "audit"},
	{Code: "roles.manage", Name: "Manage role permissions", Group: "roles"},
}

var defaultRoles = []struct {
	Name        string
	Description string
	Codes       []string
}{
	{
		Name:        model.RoleAdmin,
		Description: "Full access",
		Codes:       nil, // every permission
	},
	{
		Name:        model.RoleStaff,
		Description: "Shop floor: clients, orders, sales, payments and stock",
		Codes: []string{
			"dashboard.read",
			"clients.read", "clients.write",
			"inventory.read", "inventory.write",
			"orders.read", "orders.write",
			"payments.read", "payments.write",
			"sales.read", "sales.write",
			"reports.read",
		},
	},
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.ListAll(ctx)
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleName string, req UpdateRolePermissionsRequest) (*model.Role, error) {
	var role *model.Role
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		role, err = s.repo.FindByName(txCtx, roleName)
		if err != nil {
			return mapNotFound(err, "role")
		}
		if role.Name == model.RoleAdmin {
			return validationError("the admin role always holds every permission")
		}

		perms, err := s.repo.ListPermissions(txCtx)
		if err != nil {
			return fmt.Errorf("failed to load permissions: %w", err)
		}
		byCode := make(map[string]uuid.UUID, len(perms))
		for _, p := range perms {
			byCode[p.Code] = p.ID
		}

		ids := make([]uuid.UUID, 0, len(req.Codes))
		for _, code := range req.Codes {
			id, ok := byCode[code]
			if !ok {
				return validationError("unknown permission %q", code)
			}
			ids = append(ids, id)
		}
		if err := s.repo.ReplacePermissions(txCtx, role.ID, ids); err != nil {
			return fmt.Errorf("failed to update permissions: %w", err)
		}
		role, err = s.repo.FindByName(txCtx, roleName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	return s.repo.GetPermissionsByRoleName(ctx, roleName)
}

// SeedDefaultRolesAndPermissions creates the permission catalogue and the
// built-in roles. Existing staff permissions are kept as configured.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		byCode := make(map[string]uuid.UUID, len(defaultPermissions))
		all := make([]uuid.UUID, 0, len(defaultPermissions))
		for _, def := range defaultPermissions {
			p := def
			if err := s.repo.FindOrCreatePermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
			byCode[p.Code] = p.ID
			all = append(all, p.ID)
		}

		for _, def := range defaultRoles {
			role := &model.Role{Name: def.Name, Description: def.Description, IsSystem: true}
			if err := s.repo.FirstOrCreate(txCtx, role); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
			}

			if def.Codes == nil {
				if err := s.repo.ReplacePermissions(txCtx, role.ID, all); err != nil {
					return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
				}
				continue
			}

			current, err := s.repo.GetPermissionsByRoleName(txCtx, def.Name)
			if err != nil {
				return err
			}
			if len(current) > 0 {
				continue
			}
			ids := make([]uuid.UUID, 0, len(def.Codes))
			for _, code := range def.Codes {
				ids = append(ids, byCode[code])
			}
			if err := s.repo.ReplacePermissions(txCtx, role.ID, ids); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
			}
		}
		return nil
	})
}
