package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// TxManager runs fn in a single database transaction
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuthServiceImpl struct {
	tx               TxManager
	userRepo         user.UserRepository
	refreshTokenRepo auth.RefreshTokenRepository
	jwtService       jwt.Service
	bcryptCost       int
}

func NewAuthService(tx TxManager, userRepo user.UserRepository, refreshTokenRepo auth.RefreshTokenRepository, jwtService jwt.Service) *AuthServiceImpl {
	return &AuthServiceImpl{
		tx:               tx,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtService:       jwtService,
		bcryptCost:       bcrypt.DefaultCost,
	}
}

func (a *AuthServiceImpl) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func accessClaims(u user.User) jwt.AccessClaims {
	return jwt.AccessClaims{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, loginReq auth.LoginRequest, sessionTrackReq auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	if err := loginReq.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	userData, err := a.userRepo.GetByEmail(ctx, loginReq.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if userData.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*userData.PasswordHash), []byte(loginReq.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if !userData.IsActive {
		return auth.TokenResponse{}, auth.ErrAccountInactive
	}

	var tokenResponse auth.TokenResponse
	err = a.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		tokenResponse.AccessToken, tokenResponse.AccessTokenExpiresIn, err = a.jwtService.GenerateAccessToken(accessClaims(userData))
		if err != nil {
			return fmt.Errorf("failed to create access token: %w", err)
		}
		tokenResponse.RefreshToken, tokenResponse.RefreshTokenExpiresIn, err = a.jwtService.GenerateRefreshToken(userData.ID)
		if err != nil {
			return fmt.Errorf("failed to create refresh token: %w", err)
		}

		if err := a.refreshTokenRepo.CreateRefreshToken(txCtx, userData.ID, tokenResponse.RefreshToken, tokenResponse.RefreshTokenExpiresIn, sessionTrackReq); err != nil {
			return fmt.Errorf("failed to save refresh token to database: %w", err)
		}
		return a.userRepo.RecordLogin(txCtx, userData.ID)
	})
	if err != nil {
		return auth.TokenResponse{}, err
	}

	return tokenResponse, nil
}

// RefreshToken implements auth.AuthService.
func (a *AuthServiceImpl) RefreshToken(ctx context.Context, req auth.RefreshTokenRequest) (auth.AccessTokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.AccessTokenResponse{}, err
	}

	// 1. Signature, expiry and token type
	userID, err := a.jwtService.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return auth.AccessTokenResponse{}, auth.ErrInvalidToken
	}

	// 2. Revocation, in process first then the store
	if a.jwtService.IsTokenRevoked(req.RefreshToken) {
		return auth.AccessTokenResponse{}, auth.ErrRefreshTokenRevoked
	}
	revoked, err := a.refreshTokenRepo.IsRefreshTokenRevoked(ctx, req.RefreshToken)
	if err != nil {
		return auth.AccessTokenResponse{}, fmt.Errorf("failed to check refresh token: %w", err)
	}
	if revoked {
		return auth.AccessTokenResponse{}, auth.ErrRefreshTokenRevoked
	}

	// 3. The account must still exist and be active
	userData, err := a.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.AccessTokenResponse{}, auth.ErrUserNotFound
		}
		return auth.AccessTokenResponse{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !userData.IsActive {
		if err := a.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
			slog.Error("failed to revoke refresh tokens of inactive user", "user_id", userID, "error", err)
		}
		return auth.AccessTokenResponse{}, auth.ErrAccountInactive
	}

	var resp auth.AccessTokenResponse
	resp.AccessToken, resp.AccessTokenExpiresIn, err = a.jwtService.GenerateAccessToken(accessClaims(userData))
	if err != nil {
		return auth.AccessTokenResponse{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return resp, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, req auth.RefreshTokenRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if err := a.refreshTokenRepo.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	a.jwtService.RevokeToken(req.RefreshToken)

	return nil
}

// Me implements auth.AuthService.
func (a *AuthServiceImpl) Me(ctx context.Context, actor auth.Actor) (user.UserResponse, error) {
	userData, err := a.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.UserResponse{}, auth.ErrUserNotFound
		}
		return user.UserResponse{}, err
	}
	return userData.ToResponse(), nil
}

// CreateUser implements auth.AuthService. Only HR and the director manage accounts.
func (a *AuthServiceImpl) CreateUser(ctx context.Context, actor auth.Actor, req user.CreateUserRequest) (user.UserResponse, error) {
	if !actor.Can(user.PermissionUserManage) {
		return user.UserResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return user.UserResponse{}, err
	}

	hashed, err := a.hashPassword(req.Password)
	if err != nil {
		return user.UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := user.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: &hashed,
		Role:         user.Role(req.Role),
		Department:   strings.TrimSpace(req.Department),
		Designation:  req.Designation,
		EmployeeCode: req.EmployeeCode,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if req.JoiningDate != nil {
		joined, err := time.Parse("2006-01-02", *req.JoiningDate)
		if err != nil {
			return user.UserResponse{}, err
		}
		newUser.JoiningDate = &joined
	}

	created, err := a.userRepo.Create(ctx, newUser)
	if err != nil {
		return user.UserResponse{}, err
	}

	return created.ToResponse(), nil
}

// ListUsers implements auth.AuthService.
func (a *AuthServiceImpl) ListUsers(ctx context.Context, actor auth.Actor, role *user.Role) ([]user.UserResponse, error) {
	if !actor.Can(user.PermissionUserManage) && !actor.Can(user.PermissionLeaveViewAll) {
		return nil, user.ErrInsufficientPermissions
	}
	if role != nil && !role.IsValid() {
		return nil, user.ErrInvalidRole
	}

	users, err := a.userRepo.List(ctx, role)
	if err != nil {
		return nil, err
	}

	responses := make([]user.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}
	return responses, nil
}

// UpdateUser implements auth.AuthService. Switching an account off revokes its
// refresh tokens in the same transaction.
func (a *AuthServiceImpl) UpdateUser(ctx context.Context, actor auth.Actor, id string, req user.UpdateUserRequest) (user.UserResponse, error) {
	if !actor.Can(user.PermissionUserManage) {
		return user.UserResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return user.UserResponse{}, err
	}
	if req.Deactivates() && id == actor.ID {
		return user.UserResponse{}, user.ErrSelfDeactivation
	}

	existing, err := a.userRepo.GetByID(ctx, id)
	if err != nil {
		return user.UserResponse{}, err
	}

	revoke := req.Deactivates() && existing.IsActive
	err = a.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := a.userRepo.Update(txCtx, id, req); err != nil {
			return err
		}
		if revoke {
			return a.refreshTokenRepo.RevokeAllForUser(txCtx, id)
		}
		return nil
	})
	if err != nil {
		return user.UserResponse{}, fmt.Errorf("failed to update user: %w", err)
	}

	updated, err := a.userRepo.GetByID(ctx, id)
	if err != nil {
		return user.UserResponse{}, fmt.Errorf("failed to get updated user: %w", err)
	}
	return updated.ToResponse(), nil
}

// DeactivateUser implements auth.AuthService.
func (a *AuthServiceImpl) DeactivateUser(ctx context.Context, actor auth.Actor, id string) (user.UserResponse, error) {
	if !actor.Can(user.PermissionUserManage) {
		return user.UserResponse{}, user.ErrInsufficientPermissions
	}

	existing, err := a.userRepo.GetByID(ctx, id)
	if err != nil {
		return user.UserResponse{}, err
	}
	if !existing.IsActive {
		return user.UserResponse{}, user.ErrUserInactive
	}

	inactive := false
	return a.UpdateUser(ctx, actor, id, user.UpdateUserRequest{IsActive: &inactive})
}

var _ auth.AuthService = (*AuthServiceImpl)(nil)
