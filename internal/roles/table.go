// Package roles provides the role-gated dispatch table shared by the server's
// role-variant endpoints and the client SDK's panel selection. The mapping
// from (route, role) to variant is registered once; adding a role or route is
// a one-place change, and the unauthenticated and unauthorized fallbacks are
// defined here rather than repeated at every call site.
package roles

import (
	"tritmo/internal/models"
)

// Route names a shared navigable destination.
type Route string

const (
	RouteDashboard     Route = "dashboard"
	RouteAppointments  Route = "appointments"
	RouteNotifications Route = "notifications"
	RoutePrescriptions Route = "prescriptions"
	RoutePayroll       Route = "payroll"
	RouteReports       Route = "reports"
)

// Table maps (route, role) to a variant. The zero role ("") stands for an
// unauthenticated visitor and always resolves to the login-prompt variant.
type Table[V any] struct {
	variants     map[Route]map[models.Role]V
	loginPrompt  V
	unauthorized V
}

// NewTable creates a dispatch table with the two fallback variants.
func NewTable[V any](loginPrompt, unauthorized V) *Table[V] {
	return &Table[V]{
		variants:     make(map[Route]map[models.Role]V),
		loginPrompt:  loginPrompt,
		unauthorized: unauthorized,
	}
}

// Register binds a variant to a route for one role.
func (t *Table[V]) Register(route Route, role models.Role, variant V) {
	byRole, ok := t.variants[route]
	if !ok {
		byRole = make(map[models.Role]V)
		t.variants[route] = byRole
	}
	byRole[role] = variant
}

// Resolve picks the variant for a route and role. An empty role yields the
// login prompt; a role with no registered variant yields the unauthorized
// variant, never a silent miss.
func (t *Table[V]) Resolve(route Route, role models.Role) V {
	if role == "" {
		return t.loginPrompt
	}
	if variant, ok := t.variants[route][role]; ok {
		return variant
	}
	return t.unauthorized
}
