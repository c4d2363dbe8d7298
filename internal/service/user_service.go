package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"dotaciones/internal/model"
	"dotaciones/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"max=200"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin staff"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name" binding:"omitempty,max=200"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin staff"`
	Active   *bool   `json:"active"`
}

// LoginRequest accepts either the username or the email in Login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

// UserResponse hides the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthSettings configures token issuing.
type AuthSettings struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type UserService interface {
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id uuid.UUID) error
	SeedAdmin(ctx context.Context, username, email, password string) error
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	auth      AuthSettings
	now       func() time.Time
}

func NewUserService(repo repository.UserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, auth AuthSettings) UserService {
	if auth.AccessTTL <= 0 {
		auth.AccessTTL = 24 * time.Hour
	}
	if auth.RefreshTTL <= 0 {
		auth.RefreshTTL = 7 * 24 * time.Hour
	}
	return &userService{repo: repo, auditRepo: auditRepo, txManager: txManager, auth: auth, now: time.Now}
}

func validateRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleStaff
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	if !validateRole(req.Role) {
		return nil, validationError("invalid role: must be admin or staff")
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Password: string(hashed),
		Role:     req.Role,
		Active:   true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetByUsername(txCtx, username); err == nil {
			return conflictError("username %q already exists", username)
		}
		if _, err := s.repo.GetByEmail(txCtx, email); err == nil {
			return conflictError("email %q already exists", email)
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateUser, user.ID.String(), user.Username,
			map[string]string{"username": user.Username, "role": user.Role})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	login := strings.TrimSpace(req.Login)
	user, err := s.repo.GetByUsername(ctx, login)
	if err != nil {
		user, err = s.repo.GetByEmail(ctx, strings.ToLower(login))
	}
	if err != nil || !user.Active {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	log.Info().Str("username", user.Username).Msg("user logged in")
	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented one is consumed.
func (s *userService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	var res *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.repo.GetRefreshToken(txCtx, req.RefreshToken)
		if err != nil {
			return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		if err := s.repo.DeleteRefreshToken(txCtx, req.RefreshToken); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if s.now().After(stored.ExpiresAt) {
			return fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
		}
		user, err := s.repo.GetByID(txCtx, stored.UserID)
		if err != nil || !user.Active {
			return fmt.Errorf("%w: user is not active", ErrUnauthorized)
		}
		res, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.auth.AccessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID.String(),
		"role":     user.Role,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	})
	tokenString, err := token.SignedString(s.auth.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: now.Add(s.auth.RefreshTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  tokenString,
		RefreshToken: refresh.Token,
		ExpiresAt:    expiresAt,
		User:         *mapToResponse(user),
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "user")
		}

		if req.Role != nil {
			if !validateRole(*req.Role) {
				return validationError("invalid role: must be admin or staff")
			}
			user.Role = *req.Role
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email != user.Email {
				if other, err := s.repo.GetByEmail(txCtx, email); err == nil && other.ID != user.ID {
					return conflictError("email %q already exists", email)
				}
				user.Email = email
			}
		}
		if req.FullName != nil {
			user.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Password != nil {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.Password = string(hashed)
		}
		if req.Active != nil {
			if !*req.Active && actor.UserID != nil && *actor.UserID == user.ID {
				return validationError("you cannot deactivate your own account")
			}
			user.Active = *req.Active
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateUser, user.ID.String(), user.Username,
			map[string]interface{}{"role": user.Role, "active": user.Active})
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.UserID != nil && *actor.UserID == id {
		return validationError("you cannot delete your own account")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return mapNotFound(err, "user")
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteUser, user.ID.String(), user.Username, nil)
	})
}

// SeedAdmin creates the admin account if no user has that username yet.
func (s *userService) SeedAdmin(ctx context.Context, username, email, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if email == "" {
		email = username + "@localhost"
	}

	_, err := s.CreateUser(ctx, SystemActor, CreateUserRequest{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Info().Str("username", username).Msg("admin user seeded")
	return nil
}
