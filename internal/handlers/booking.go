package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tritmo/internal/booking"
	"tritmo/internal/mailer"
	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/realtime"
	"tritmo/internal/schedule"
	"tritmo/internal/utils"
)

// ErrSlotTaken is returned when the chosen slot was booked by someone else
// between slot listing and confirmation.
var ErrSlotTaken = errors.New("the selected time slot is no longer available")

// BookingHandler drives the appointment booking wizard. The wizard state
// lives in redis per authenticated user; every mutation loads, applies and
// saves the snapshot so a session survives reconnects and server restarts.
type BookingHandler struct {
	DB        *gorm.DB
	Sessions  booking.Store
	Publisher realtime.EventPublisher
	Mailer    *mailer.Mailer
	Log       *zap.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(db *gorm.DB, sessions booking.Store, publisher realtime.EventPublisher, m *mailer.Mailer, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{DB: db, Sessions: sessions, Publisher: publisher, Mailer: m, Log: log}
}

// GetAvailableSlots handles listing the open slots for a doctor on a date.
func (h *BookingHandler) GetAvailableSlots(c *gin.Context) {
	doctorID := c.Param("id")
	dateStr := c.Query("date")

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		utils.BadRequest(c, "Invalid or missing date, expected YYYY-MM-DD")
		return
	}

	slots, err := h.availableSlots(doctorID, date)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Failed to compute slots: "+err.Error())
		}
		return
	}

	utils.Success(c, "Available slots fetched successfully", gin.H{
		"doctorId": doctorID,
		"date":     dateStr,
		"slots":    slots,
	})
}

// availableSlots computes the doctor's free slots for one date, removing
// slots already held by a live appointment.
func (h *BookingHandler) availableSlots(doctorID string, date time.Time) ([]string, error) {
	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", doctorID).First(&profile).Error; err != nil {
		return nil, err
	}

	var taken []string
	err := h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status NOT IN ?",
			doctorID, date,
			[]models.AppointmentStatus{models.StatusCancelled, models.StatusRejected}).
		Pluck("slot", &taken).Error
	if err != nil {
		return nil, err
	}

	return schedule.AvailableSlots(&profile, date, taken), nil
}

// StartBookingRequest represents the request body for starting a booking wizard.
type StartBookingRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
}

// StartBooking handles opening a new booking wizard session. Starting again
// replaces any unfinished session for the same user.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req StartBookingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", req.DoctorID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if profile.ApprovalStatus != models.ApprovalApproved {
		utils.BadRequest(c, "This doctor is not accepting appointments")
		return
	}

	flow := booking.New(req.DoctorID)
	if err := h.Sessions.Save(c.Request.Context(), userID, flow.State()); err != nil {
		utils.InternalServerError(c, "Failed to save booking session: "+err.Error())
		return
	}

	utils.Created(c, "Booking session started", flow.State())
}

// GetBooking handles fetching the current wizard state.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	state, err := h.Sessions.Load(c.Request.Context(), userID)
	if err != nil {
		if err == booking.ErrNoSession {
			utils.NotFound(c, "No active booking session")
		} else {
			utils.InternalServerError(c, "Failed to load booking session: "+err.Error())
		}
		return
	}

	utils.Success(c, "Booking session fetched", state)
}

// AbandonBooking handles discarding the current wizard session.
func (h *BookingHandler) AbandonBooking(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.Sessions.Delete(c.Request.Context(), userID); err != nil {
		utils.InternalServerError(c, "Failed to discard booking session: "+err.Error())
		return
	}

	utils.Success(c, "Booking session discarded", nil)
}

// withFlow loads the caller's wizard, applies fn, and saves the result.
// fn errors are translated to the appropriate HTTP status and nothing is
// persisted for a rejected transition.
func (h *BookingHandler) withFlow(c *gin.Context, fn func(flow *booking.Flow) error) {
	userID, _ := middleware.GetUserIDFromContext(c)

	state, err := h.Sessions.Load(c.Request.Context(), userID)
	if err != nil {
		if err == booking.ErrNoSession {
			utils.NotFound(c, "No active booking session")
		} else {
			utils.InternalServerError(c, "Failed to load booking session: "+err.Error())
		}
		return
	}

	flow := booking.Restore(state)
	if err := fn(flow); err != nil {
		h.respondFlowError(c, err)
		return
	}

	if err := h.Sessions.Save(c.Request.Context(), userID, flow.State()); err != nil {
		utils.InternalServerError(c, "Failed to save booking session: "+err.Error())
		return
	}

	utils.Success(c, "Booking session updated", flow.State())
}

func (h *BookingHandler) respondFlowError(c *gin.Context, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.BadRequest(c, ve.Error())
	case errors.Is(err, booking.ErrAlreadyBooked), errors.Is(err, ErrSlotTaken):
		utils.Conflict(c, err.Error())
	default:
		utils.BadRequest(c, err.Error())
	}
}

// SetDateRequest represents the request body for the date step.
type SetDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SetDate handles recording the appointment date.
func (h *BookingHandler) SetDate(c *gin.Context) {
	var req SetDateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	h.withFlow(c, func(flow *booking.Flow) error {
		if err := flow.SetDate(date); err != nil {
			return err
		}
		return flow.Next()
	})
}

// SetSlotRequest represents the request body for the time step.
type SetSlotRequest struct {
	Slot string `json:"slot" binding:"required"`
}

// SetSlot handles recording the chosen slot after re-checking it is still open.
func (h *BookingHandler) SetSlot(c *gin.Context) {
	var req SetSlotRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	h.withFlow(c, func(flow *booking.Flow) error {
		state := flow.State()
		slots, err := h.availableSlots(state.DoctorID, state.Date)
		if err != nil {
			return fmt.Errorf("checking slot availability: %w", err)
		}
		open := false
		for _, s := range slots {
			if s == req.Slot {
				open = true
				break
			}
		}
		if !open {
			return ErrSlotTaken
		}
		if err := flow.SetSlot(req.Slot); err != nil {
			return err
		}
		return flow.Next()
	})
}

// SetDetails handles recording the patient details.
func (h *BookingHandler) SetDetails(c *gin.Context) {
	var req booking.Details
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	h.withFlow(c, func(flow *booking.Flow) error {
		if err := flow.SetDetails(req); err != nil {
			return err
		}
		return flow.Next()
	})
}

// SetMethodRequest represents the request body for the payment step.
type SetMethodRequest struct {
	Method string `json:"method" binding:"required"`
}

// SetMethod handles recording the payment method.
func (h *BookingHandler) SetMethod(c *gin.Context) {
	var req SetMethodRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	h.withFlow(c, func(flow *booking.Flow) error {
		return flow.SetMethod(models.PaymentMethod(req.Method))
	})
}

// Back handles stepping the wizard back one step.
func (h *BookingHandler) Back(c *gin.Context) {
	h.withFlow(c, func(flow *booking.Flow) error {
		return flow.Back()
	})
}

// Confirm handles submitting the wizard as one atomic booking. The confirmed
// state, including the booking reference, stays in the session store so the
// client can re-read it after a reconnect.
func (h *BookingHandler) Confirm(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	sub := &dbSubmitter{handler: h, patientID: userID}

	h.withFlow(c, func(flow *booking.Flow) error {
		ref, err := flow.Confirm(c.Request.Context(), sub)
		if err != nil {
			return err
		}
		err = h.DB.Model(&models.Appointment{}).
			Where("id = ?", sub.appointmentID).
			Update("reference", ref).Error
		if err != nil {
			h.Log.Warn("failed to persist booking reference", zap.Error(err))
		}
		return nil
	})
}

// dbSubmitter persists a confirmed wizard as an appointment plus its bill,
// inside one transaction, with a last-moment slot conflict check.
type dbSubmitter struct {
	handler   *BookingHandler
	patientID string

	// set on successful submit so the handler can persist the reference
	appointmentID string
}

func (s *dbSubmitter) Submit(ctx context.Context, req booking.Request) (string, error) {
	h := s.handler

	var appointment models.Appointment
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.DoctorProfile
		if err := tx.Where("user_id = ?", req.DoctorID).First(&profile).Error; err != nil {
			return fmt.Errorf("loading doctor profile: %w", err)
		}

		var clash int64
		err := tx.Model(&models.Appointment{}).
			Where("doctor_id = ? AND date = ? AND slot = ? AND status NOT IN ?",
				req.DoctorID, req.Date, req.Slot,
				[]models.AppointmentStatus{models.StatusCancelled, models.StatusRejected}).
			Count(&clash).Error
		if err != nil {
			return err
		}
		if clash > 0 {
			return ErrSlotTaken
		}

		appointment = models.Appointment{
			PatientID:     s.patientID,
			DoctorID:      req.DoctorID,
			Date:          req.Date,
			Slot:          req.Slot,
			Status:        models.StatusPending,
			PatientName:   req.PatientName,
			Contact:       req.Contact,
			Reason:        req.Reason,
			PaymentStatus: models.PaymentUnpaid,
			PaymentMethod: req.Method,
			Amount:        profile.Fee,
		}
		if err := tx.Create(&appointment).Error; err != nil {
			return err
		}

		due := req.Date
		bill := models.Bill{
			AppointmentID: appointment.ID,
			PatientID:     s.patientID,
			Amount:        profile.Fee,
			Status:        models.PaymentUnpaid,
			Method:        req.Method,
			DueDate:       due,
		}
		return tx.Create(&bill).Error
	})
	if err != nil {
		return "", err
	}

	s.appointmentID = appointment.ID
	h.notifyBooking(appointment)
	return appointment.ID, nil
}

// notifyBooking pushes the new-appointment notification to the doctor and
// mails a confirmation to the patient. Both are best effort.
func (h *BookingHandler) notifyBooking(a models.Appointment) {
	message := fmt.Sprintf("New appointment request for %s at %s from %s",
		a.Date.Format("2006-01-02"), a.Slot, a.PatientName)
	notification := models.Notification{
		Scope:   a.DoctorID,
		Kind:    realtime.EventNotificationNew,
		Message: message,
	}
	if err := h.DB.Create(&notification).Error; err != nil {
		h.Log.Error("failed to persist booking notification", zap.Error(err))
	}
	if h.Publisher != nil {
		h.Publisher.Publish(context.Background(), realtime.Event{
			Type:    realtime.EventNotificationNew,
			Scope:   a.DoctorID,
			Message: message,
		})
	}

	if h.Mailer == nil {
		return
	}
	var patient models.User
	if err := h.DB.First(&patient, "id = ?", a.PatientID).Error; err != nil {
		h.Log.Warn("could not load patient for confirmation email", zap.Error(err))
		return
	}
	subject := "Your Tritmo appointment request"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your appointment request for <b>%s at %s</b> has been received and is awaiting the doctor's confirmation.</p>",
		patient.FirstName, a.Date.Format("2006-01-02"), a.Slot,
	)
	go func() {
		if err := h.Mailer.Send(patient.Email, subject, body, "", nil); err != nil {
			h.Log.Warn("failed to send booking confirmation email", zap.Error(err))
		}
	}()
}
