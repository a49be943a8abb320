package client

import (
	"tritmo/internal/models"
	"tritmo/internal/roles"
)

// View names a renderable client surface. The login prompt and the
// unauthorized notice are views like any other, so navigation never has a
// silent dead end.
type View string

const (
	ViewLoginPrompt  View = "login-prompt"
	ViewUnauthorized View = "unauthorized"

	ViewPatientDashboard View = "patient-dashboard"
	ViewDoctorDashboard  View = "doctor-dashboard"
	ViewAdminDashboard   View = "admin-dashboard"

	ViewPatientAppointments View = "patient-appointments"
	ViewDoctorSchedule      View = "doctor-schedule"
	ViewAdminAppointments   View = "admin-appointments"

	ViewNotifications View = "notifications"

	ViewPatientPrescriptions View = "patient-prescriptions"
	ViewDoctorPrescriptions  View = "doctor-prescriptions"

	ViewDoctorPayroll View = "doctor-payroll"
	ViewAdminPayroll  View = "admin-payroll"

	ViewPatientReports View = "patient-reports"
	ViewDoctorReports  View = "doctor-reports"
	ViewAdminReports   View = "admin-reports"
)

// navigation is the single place the (route, role) mapping lives.
var navigation = buildNavigation()

func buildNavigation() *roles.Table[View] {
	t := roles.NewTable(ViewLoginPrompt, ViewUnauthorized)

	t.Register(roles.RouteDashboard, models.RolePatient, ViewPatientDashboard)
	t.Register(roles.RouteDashboard, models.RoleDoctor, ViewDoctorDashboard)
	t.Register(roles.RouteDashboard, models.RoleAdmin, ViewAdminDashboard)

	t.Register(roles.RouteAppointments, models.RolePatient, ViewPatientAppointments)
	t.Register(roles.RouteAppointments, models.RoleDoctor, ViewDoctorSchedule)
	t.Register(roles.RouteAppointments, models.RoleAdmin, ViewAdminAppointments)

	// Notifications render identically for every signed-in role.
	t.Register(roles.RouteNotifications, models.RolePatient, ViewNotifications)
	t.Register(roles.RouteNotifications, models.RoleDoctor, ViewNotifications)
	t.Register(roles.RouteNotifications, models.RoleAdmin, ViewNotifications)

	t.Register(roles.RoutePrescriptions, models.RolePatient, ViewPatientPrescriptions)
	t.Register(roles.RoutePrescriptions, models.RoleDoctor, ViewDoctorPrescriptions)

	// Patients have no payroll view; resolving it yields unauthorized.
	t.Register(roles.RoutePayroll, models.RoleDoctor, ViewDoctorPayroll)
	t.Register(roles.RoutePayroll, models.RoleAdmin, ViewAdminPayroll)

	t.Register(roles.RouteReports, models.RolePatient, ViewPatientReports)
	t.Register(roles.RouteReports, models.RoleDoctor, ViewDoctorReports)
	t.Register(roles.RouteReports, models.RoleAdmin, ViewAdminReports)

	return t
}

// ResolveView picks the view for a route given the session's current
// identity. While the session is still initializing, the caller should hold
// rendering rather than act on the anonymous fallback.
func (s *Session) ResolveView(route roles.Route) View {
	var role models.Role
	if user := s.User(); user != nil {
		role = user.Role
	}
	return navigation.Resolve(route, role)
}
