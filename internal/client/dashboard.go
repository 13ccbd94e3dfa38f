package client

import (
	"context"
	"fmt"

	"github.com/tickora-io/tickora/internal/types"
)

const (
	dashboardPath     = "/dashboard/"
	defaultReportDays = 30
)

// DashboardService reads the per-role dashboards and their period reports
type DashboardService struct {
	client *Client
}

// Employee retrieves the caller's own dashboard
func (s *DashboardService) Employee(ctx context.Context) (*types.EmployeeDashboard, error) {
	var result types.EmployeeDashboard
	if err := s.client.Get(ctx, dashboardPath+"employee/", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Manager retrieves the dashboard of the projects the caller created or belongs to
func (s *DashboardService) Manager(ctx context.Context) (*types.ManagerDashboard, error) {
	var result types.ManagerDashboard
	if err := s.client.Get(ctx, dashboardPath+"manager/", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Admin retrieves system-wide counters. Non-admins get a permission error.
func (s *DashboardService) Admin(ctx context.Context) (*types.AdminDashboard, error) {
	var result types.AdminDashboard
	if err := s.client.Get(ctx, dashboardPath+"admin/", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EmployeeReports retrieves the caller's trends over the last days (30 when days <= 0)
func (s *DashboardService) EmployeeReports(ctx context.Context, days int) (*types.EmployeeReports, error) {
	var result types.EmployeeReports
	if err := s.client.Get(ctx, reportPath("employee", days), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ManagerReports retrieves team trends over the last days (30 when days <= 0)
func (s *DashboardService) ManagerReports(ctx context.Context, days int) (*types.ManagerReports, error) {
	var result types.ManagerReports
	if err := s.client.Get(ctx, reportPath("manager", days), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AdminReports retrieves system trends over the last days (30 when days <= 0)
func (s *DashboardService) AdminReports(ctx context.Context, days int) (*types.AdminReports, error) {
	var result types.AdminReports
	if err := s.client.Get(ctx, reportPath("admin", days), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func reportPath(role string, days int) string {
	if days <= 0 {
		days = defaultReportDays
	}
	return fmt.Sprintf("%sreports/%s/?days=%d", dashboardPath, role, days)
}
