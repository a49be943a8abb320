package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/roles"
	"tritmo/internal/utils"
)

// DashboardHandler serves the role-variant dashboard. The variant for each
// role is registered once in a dispatch table; unknown roles fall through to
// the unauthorized variant instead of leaking another role's numbers.
type DashboardHandler struct {
	DB    *gorm.DB
	table *roles.Table[func(c *gin.Context, userID string)]
}

// NewDashboardHandler creates a new DashboardHandler with all role variants registered.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	h := &DashboardHandler{DB: db}

	h.table = roles.NewTable(
		func(c *gin.Context, _ string) { utils.Unauthorized(c, "Sign in to view your dashboard") },
		func(c *gin.Context, _ string) { utils.Forbidden(c, "No dashboard is available for your role") },
	)
	h.table.Register(roles.RouteDashboard, models.RolePatient, h.patientDashboard)
	h.table.Register(roles.RouteDashboard, models.RoleDoctor, h.doctorDashboard)
	h.table.Register(roles.RouteDashboard, models.RoleAdmin, h.adminDashboard)

	return h
}

// GetDashboard handles fetching the dashboard for the caller's role.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	h.table.Resolve(roles.RouteDashboard, role)(c, userID)
}

func (h *DashboardHandler) patientDashboard(c *gin.Context, userID string) {
	var upcoming []models.Appointment
	err := h.DB.Preload("Doctor").
		Where("patient_id = ? AND date >= ? AND status IN ?",
			userID, today(),
			[]models.AppointmentStatus{models.StatusPending, models.StatusAccepted, models.StatusApproved}).
		Order("date ASC, slot ASC").Limit(5).
		Find(&upcoming).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to load dashboard: "+err.Error())
		return
	}

	var unpaidBills int64
	h.DB.Model(&models.Bill{}).
		Where("patient_id = ? AND status = ?", userID, models.PaymentUnpaid).
		Count(&unpaidBills)

	var prescriptions int64
	h.DB.Model(&models.Prescription{}).
		Where("patient_id = ? AND finalized = ?", userID, true).
		Count(&prescriptions)

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"role":                 models.RolePatient,
		"upcomingAppointments": upcoming,
		"unpaidBills":          unpaidBills,
		"prescriptions":        prescriptions,
	})
}

func (h *DashboardHandler) doctorDashboard(c *gin.Context, userID string) {
	var todays []models.Appointment
	err := h.DB.Preload("Patient").
		Where("doctor_id = ? AND date = ? AND status IN ?",
			userID, today(),
			[]models.AppointmentStatus{models.StatusAccepted, models.StatusApproved}).
		Order("slot ASC").
		Find(&todays).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to load dashboard: "+err.Error())
		return
	}

	var pending int64
	h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status = ?", userID, models.StatusPending).
		Count(&pending)

	var completed int64
	h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status = ?", userID, models.StatusCompleted).
		Count(&completed)

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"role":               models.RoleDoctor,
		"todaysAppointments": todays,
		"pendingRequests":    pending,
		"completedTotal":     completed,
	})
}

func (h *DashboardHandler) adminDashboard(c *gin.Context, _ string) {
	var patients, doctors, pendingApprovals, appointments int64
	h.DB.Model(&models.User{}).Where("role = ?", models.RolePatient).Count(&patients)
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleDoctor).Count(&doctors)
	h.DB.Model(&models.DoctorProfile{}).Where("approval_status = ?", models.ApprovalPending).Count(&pendingApprovals)
	h.DB.Model(&models.Appointment{}).Count(&appointments)

	var revenue float64
	h.DB.Model(&models.Bill{}).
		Where("status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&revenue)

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"role":             models.RoleAdmin,
		"patients":         patients,
		"doctors":          doctors,
		"pendingApprovals": pendingApprovals,
		"appointments":     appointments,
		"revenue":          revenue,
	})
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
