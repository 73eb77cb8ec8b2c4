package auth

import "github.com/cmlabs-hris/leave-portal-go/internal/domain/user"

// Actor is the authenticated user on whose behalf a call is made.
// It is resolved once per request from the verified access token and passed
// explicitly into services instead of being read from ambient session state.
type Actor struct {
	ID         string
	Name       string
	Role       user.Role
	Department string
}

// Can reports whether the actor's role grants the permission
func (a Actor) Can(permission user.Permission) bool {
	return user.HasPermission(a.Role, permission)
}
