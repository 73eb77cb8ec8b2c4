package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type actorKey struct{}

// AuthRequired rejects requests without a verified access token and stores
// the resolved actor on the request context. It must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TypeAccess {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		actor, ok := actorFromClaims(claims)
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func actorFromClaims(claims map[string]interface{}) (auth.Actor, bool) {
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !user.Role(role).IsValid() {
		return auth.Actor{}, false
	}

	name, _ := claims["name"].(string)
	department, _ := claims["department"].(string)

	return auth.Actor{
		ID:         userID,
		Name:       name,
		Role:       user.Role(role),
		Department: department,
	}, true
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by AuthRequired
func ActorFromContext(ctx context.Context) (auth.Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(auth.Actor)
	if !ok || actor.ID == "" {
		return auth.Actor{}, auth.ErrMissingActor
	}
	return actor, nil
}
