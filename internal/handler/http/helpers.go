package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/leave-portal-go/internal/handler/http/response"
)

// requireActor writes 401 and returns false when no actor is on the request
func requireActor(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return auth.Actor{}, false
	}
	return actor, true
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// optionalQuery returns nil for an absent or empty query parameter
func optionalQuery(r *http.Request, key string) *string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	return &val
}

// optionalBoolQuery returns nil unless the parameter is present
func optionalBoolQuery(r *http.Request, key string) *bool {
	if r.URL.Query().Get(key) == "" {
		return nil
	}
	val := getBoolQueryParam(r, key, false)
	return &val
}
