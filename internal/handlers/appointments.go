package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/realtime"
	"tritmo/internal/utils"
)

// AppointmentHandler handles appointment listing and lifecycle transitions.
type AppointmentHandler struct {
	DB        *gorm.DB
	Publisher realtime.EventPublisher
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, publisher realtime.EventPublisher) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Publisher: publisher}
}

// GetAppointments handles listing appointments visible to the caller.
// Patients see their own, doctors see their schedule, admins see everything.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Patient").Preload("Doctor").Order("date DESC, slot DESC")

	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
		// no filter
	default:
		utils.Forbidden(c, "Unknown role")
		return
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointment handles fetching a single appointment the caller may see.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id := c.Param("id")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !canSeeAppointment(appointment, userID, role) {
		utils.Forbidden(c, "You do not have access to this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

func canSeeAppointment(a models.Appointment, userID string, role models.Role) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return a.DoctorID == userID
	case models.RolePatient:
		return a.PatientID == userID
	}
	return false
}

// UpdateAppointmentStatusRequest represents the request body for a status transition.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING ACCEPTED APPROVED CANCELLED COMPLETED REJECTED"`
}

// UpdateAppointmentStatus handles moving an appointment through its lifecycle.
// Patients may only cancel their own upcoming appointments; doctors accept,
// reject or complete appointments on their schedule; admins may set anything.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id := c.Param("id")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	target := models.AppointmentStatus(req.Status)

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	switch role {
	case models.RolePatient:
		if appointment.PatientID != userID {
			utils.Forbidden(c, "You do not have access to this appointment")
			return
		}
		if target != models.StatusCancelled {
			utils.Forbidden(c, "Patients may only cancel appointments")
			return
		}
		switch appointment.Status {
		case models.StatusPending, models.StatusAccepted, models.StatusApproved:
			// cancellable
		default:
			utils.Conflict(c, "This appointment can no longer be cancelled")
			return
		}
	case models.RoleDoctor:
		if appointment.DoctorID != userID {
			utils.Forbidden(c, "You do not have access to this appointment")
			return
		}
		switch target {
		case models.StatusAccepted, models.StatusApproved, models.StatusRejected, models.StatusCompleted:
			// doctor transitions
		default:
			utils.Forbidden(c, "Doctors may only accept, approve, reject or complete appointments")
			return
		}
		if appointment.Status == models.StatusCancelled {
			utils.Conflict(c, "Cancelled appointments cannot be updated")
			return
		}
	case models.RoleAdmin:
		// admins may set anything
	default:
		utils.Forbidden(c, "Unknown role")
		return
	}

	previous := appointment.Status
	appointment.Status = target
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	h.notifyTransition(appointment, previous, userID)
	utils.Success(c, "Appointment status updated", appointment)
}

// notifyTransition tells the other party about the status change.
func (h *AppointmentHandler) notifyTransition(a models.Appointment, previous models.AppointmentStatus, actorID string) {
	if a.Status == previous {
		return
	}

	// Notify whichever side did not perform the transition.
	recipient := a.PatientID
	if actorID == a.PatientID {
		recipient = a.DoctorID
	}

	message := fmt.Sprintf("Your appointment on %s at %s is now %s",
		a.Date.Format("2006-01-02"), a.Slot, a.Status)

	notification := models.Notification{
		Scope:   recipient,
		Kind:    realtime.EventNotificationNew,
		Message: message,
	}
	h.DB.Create(&notification)

	if h.Publisher != nil {
		h.Publisher.Publish(context.Background(), realtime.Event{
			Type:    realtime.EventNotificationNew,
			Scope:   recipient,
			Message: message,
		})
	}
}
