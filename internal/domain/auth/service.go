package auth

import (
	"context"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
)

type AuthService interface {
	Login(ctx context.Context, req LoginRequest, session SessionTrackingRequest) (TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (AccessTokenResponse, error)
	Logout(ctx context.Context, req RefreshTokenRequest) error
	Me(ctx context.Context, actor Actor) (user.UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req user.CreateUserRequest) (user.UserResponse, error)
	ListUsers(ctx context.Context, actor Actor, role *user.Role) ([]user.UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id string, req user.UpdateUserRequest) (user.UserResponse, error)
	DeactivateUser(ctx context.Context, actor Actor, id string) (user.UserResponse, error)
}

// RefreshTokenRepository persists issued refresh tokens by hash
type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, userID string, token string, expiresAt int64, sessionReq SessionTrackingRequest) error
	IsRefreshTokenRevoked(ctx context.Context, token string) (bool, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
