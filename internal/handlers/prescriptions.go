package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/realtime"
	"tritmo/internal/utils"
)

// PrescriptionHandler handles prescriptions written by doctors for patients.
// A prescription is editable until the doctor finalizes it; finalization is
// one-way and every later mutation is rejected.
type PrescriptionHandler struct {
	DB        *gorm.DB
	Publisher realtime.EventPublisher
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(db *gorm.DB, publisher realtime.EventPublisher) *PrescriptionHandler {
	return &PrescriptionHandler{DB: db, Publisher: publisher}
}

// PrescriptionItemRequest represents one medication line in a prescription.
type PrescriptionItemRequest struct {
	Medication string `json:"medication" binding:"required"`
	Dose       string `json:"dose" binding:"required"`
	Frequency  string `json:"frequency" binding:"required"`
}

// CreatePrescriptionRequest represents the request body for writing a prescription.
type CreatePrescriptionRequest struct {
	PatientID string                    `json:"patientId" binding:"required"`
	Notes     string                    `json:"notes"`
	Items     []PrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreatePrescription handles a doctor writing a new prescription.
func (h *PrescriptionHandler) CreatePrescription(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", req.PatientID, models.RolePatient).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	prescription := models.Prescription{
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		Notes:     req.Notes,
	}
	for i, item := range req.Items {
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			Position:   i + 1,
			Medication: item.Medication,
			Dose:       item.Dose,
			Frequency:  item.Frequency,
		})
	}

	if err := h.DB.Create(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to create prescription: "+err.Error())
		return
	}

	utils.Created(c, "Prescription created successfully", prescription)
}

// GetPrescriptions handles listing prescriptions visible to the caller.
func (h *PrescriptionHandler) GetPrescriptions(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("created_at DESC")

	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		}
	default:
		utils.Forbidden(c, "Unknown role")
		return
	}

	var prescriptions []models.Prescription
	if err := query.Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}

// GetPrescription handles fetching a single prescription the caller may see.
func (h *PrescriptionHandler) GetPrescription(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	prescription, ok := h.loadVisible(c, c.Param("id"), userID, role)
	if !ok {
		return
	}

	utils.Success(c, "Prescription fetched successfully", prescription)
}

// UpdatePrescriptionRequest represents the request body for editing a draft prescription.
type UpdatePrescriptionRequest struct {
	Notes string                    `json:"notes"`
	Items []PrescriptionItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// UpdatePrescription handles a doctor editing a draft prescription. Items,
// when sent, replace the existing list wholesale.
func (h *PrescriptionHandler) UpdatePrescription(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var req UpdatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	prescription, ok := h.loadOwned(c, c.Param("id"), doctorID)
	if !ok {
		return
	}
	if prescription.Finalized {
		utils.Conflict(c, "Finalized prescriptions cannot be modified")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.Notes != "" {
			prescription.Notes = req.Notes
		}
		if len(req.Items) > 0 {
			if err := tx.Where("prescription_id = ?", prescription.ID).Delete(&models.PrescriptionItem{}).Error; err != nil {
				return err
			}
			prescription.Items = nil
			for i, item := range req.Items {
				prescription.Items = append(prescription.Items, models.PrescriptionItem{
					PrescriptionID: prescription.ID,
					Position:       i + 1,
					Medication:     item.Medication,
					Dose:           item.Dose,
					Frequency:      item.Frequency,
				})
			}
		}
		return tx.Save(&prescription).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update prescription: "+err.Error())
		return
	}

	utils.Success(c, "Prescription updated successfully", prescription)
}

// FinalizePrescription handles locking a prescription. After this the
// prescription is read-only for everyone, the patient is notified.
func (h *PrescriptionHandler) FinalizePrescription(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	prescription, ok := h.loadOwned(c, c.Param("id"), doctorID)
	if !ok {
		return
	}
	if prescription.Finalized {
		utils.Conflict(c, "Prescription is already finalized")
		return
	}

	prescription.Finalized = true
	if err := h.DB.Save(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to finalize prescription: "+err.Error())
		return
	}

	message := "A new prescription has been issued to you"
	notification := models.Notification{
		Scope:   prescription.PatientID,
		Kind:    realtime.EventNotificationNew,
		Message: message,
	}
	h.DB.Create(&notification)
	if h.Publisher != nil {
		h.Publisher.Publish(context.Background(), realtime.Event{
			Type:    realtime.EventNotificationNew,
			Scope:   prescription.PatientID,
			Message: message,
		})
	}

	utils.Success(c, "Prescription finalized", prescription)
}

// DeletePrescription handles a doctor discarding a draft prescription.
func (h *PrescriptionHandler) DeletePrescription(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	prescription, ok := h.loadOwned(c, c.Param("id"), doctorID)
	if !ok {
		return
	}
	if prescription.Finalized {
		utils.Conflict(c, "Finalized prescriptions cannot be deleted")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prescription_id = ?", prescription.ID).Delete(&models.PrescriptionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prescription).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete prescription: "+err.Error())
		return
	}

	utils.Success(c, "Prescription deleted successfully", nil)
}

// loadOwned fetches a prescription authored by the given doctor, writing the
// error response itself when it cannot.
func (h *PrescriptionHandler) loadOwned(c *gin.Context, id, doctorID string) (models.Prescription, bool) {
	var prescription models.Prescription
	err := h.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&prescription, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Prescription not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return models.Prescription{}, false
	}
	if prescription.DoctorID != doctorID {
		utils.Forbidden(c, "You do not have access to this prescription")
		return models.Prescription{}, false
	}
	return prescription, true
}

// loadVisible fetches a prescription readable by the caller per role.
func (h *PrescriptionHandler) loadVisible(c *gin.Context, id, userID string, role models.Role) (models.Prescription, bool) {
	var prescription models.Prescription
	err := h.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&prescription, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Prescription not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return models.Prescription{}, false
	}

	allowed := role == models.RoleAdmin ||
		(role == models.RoleDoctor && prescription.DoctorID == userID) ||
		(role == models.RolePatient && prescription.PatientID == userID)
	if !allowed {
		utils.Forbidden(c, "You do not have access to this prescription")
		return models.Prescription{}, false
	}
	return prescription, true
}
