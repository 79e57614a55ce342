package api

import (
	"context"

	"github.com/crisp-labs/interview-engine/internal/models"
)

type contextKey string

const dashboardClientKey contextKey = "dashboard_client"

// dashboardClient returns the authenticated dashboard client, or nil on
// an unauthenticated (candidate-facing) request.
func dashboardClient(ctx context.Context) *models.ApiClient {
	client, ok := ctx.Value(dashboardClientKey).(*models.ApiClient)
	if !ok {
		return nil
	}
	return client
}

// withDashboardClient stores the authenticated client on the context
func withDashboardClient(ctx context.Context, client *models.ApiClient) context.Context {
	return context.WithValue(ctx, dashboardClientKey, client)
}
