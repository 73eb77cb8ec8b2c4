package dashboard

import (
	"context"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
)

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	// GetDashboard returns the combined dashboard for the actor's role.
	// month is YYYY-MM and defaults to the current month.
	GetDashboard(ctx context.Context, actor auth.Actor, month string) (*DashboardResponse, error)
}
