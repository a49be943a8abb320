package roles

import (
	"testing"

	"tritmo/internal/models"
)

func newTestTable() *Table[string] {
	t := NewTable[string]("login-prompt", "unauthorized")
	t.Register(RouteDashboard, models.RolePatient, "patient-dashboard")
	t.Register(RouteDashboard, models.RoleDoctor, "doctor-dashboard")
	t.Register(RouteDashboard, models.RoleAdmin, "admin-dashboard")
	t.Register(RoutePayroll, models.RoleAdmin, "admin-payroll")
	return t
}

func TestTable_ResolvesByRole(t *testing.T) {
	table := newTestTable()

	cases := []struct {
		role models.Role
		want string
	}{
		{models.RolePatient, "patient-dashboard"},
		{models.RoleDoctor, "doctor-dashboard"},
		{models.RoleAdmin, "admin-dashboard"},
	}
	for _, tc := range cases {
		if got := table.Resolve(RouteDashboard, tc.role); got != tc.want {
			t.Fatalf("role %s: expected %s, got %s", tc.role, tc.want, got)
		}
	}
}

func TestTable_UnauthenticatedGetsLoginPrompt(t *testing.T) {
	table := newTestTable()

	for _, route := range []Route{RouteDashboard, RoutePayroll, RouteReports} {
		if got := table.Resolve(route, ""); got != "login-prompt" {
			t.Fatalf("route %s: expected login prompt for empty role, got %s", route, got)
		}
	}
}

func TestTable_MissingVariantIsUnauthorized(t *testing.T) {
	table := newTestTable()

	// Payroll has only an admin variant.
	if got := table.Resolve(RoutePayroll, models.RolePatient); got != "unauthorized" {
		t.Fatalf("expected unauthorized, got %s", got)
	}
	// Unregistered route is unauthorized for any authenticated role.
	if got := table.Resolve(RouteReports, models.RoleDoctor); got != "unauthorized" {
		t.Fatalf("expected unauthorized for unregistered route, got %s", got)
	}
}
