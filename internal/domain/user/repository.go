package user

import (
	"context"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, newUser User) (User, error)
	List(ctx context.Context, role *Role) ([]User, error)
	// Update writes only the fields set in req
	Update(ctx context.Context, id string, req UpdateUserRequest) error
	RecordLogin(ctx context.Context, id string) error
}
