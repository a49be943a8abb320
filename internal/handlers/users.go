package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/realtime"
	"tritmo/internal/utils"
)

// UserHandler handles user management and the doctor directory.
type UserHandler struct {
	DB        *gorm.DB
	Publisher realtime.EventPublisher
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, publisher realtime.EventPublisher) *UserHandler {
	return &UserHandler{DB: db, Publisher: publisher}
}

// GetUsers handles fetching all users, optionally filtered by role. Admin only.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.Preload("DoctorProfile").Order("created_at DESC")

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, 0, len(users))
	for i := range users {
		sanitized = append(sanitized, users[i].Sanitize())
	}

	utils.Success(c, "Users fetched successfully", sanitized)
}

// GetUser handles fetching a single user by ID. Admin only.
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")

	var user models.User
	if err := h.DB.Preload("DoctorProfile").First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// DeleteUser handles removing a user account. Admin only.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	adminID, _ := middleware.GetUserIDFromContext(c)
	if adminID == id {
		utils.BadRequest(c, "Admins cannot delete their own account")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete user: "+err.Error())
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

// GetDoctors handles the public doctor directory: approved doctors only,
// featured ones first.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	var doctors []models.User
	err := h.DB.
		Joins("JOIN doctor_profiles ON doctor_profiles.user_id = users.id").
		Where("users.role = ? AND doctor_profiles.approval_status = ?", models.RoleDoctor, models.ApprovalApproved).
		Order("doctor_profiles.featured DESC, users.created_at ASC").
		Preload("DoctorProfile").
		Find(&doctors).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	now := time.Now()
	sanitized := make([]models.UserSanitized, 0, len(doctors))
	for i := range doctors {
		// A lapsed featured window reads as not featured without a write.
		if p := doctors[i].DoctorProfile; p != nil {
			p.Featured = p.IsFeatured(now)
		}
		sanitized = append(sanitized, doctors[i].Sanitize())
	}

	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// GetDoctor handles fetching a single approved doctor with profile.
func (h *UserHandler) GetDoctor(c *gin.Context) {
	id := c.Param("id")

	var doctor models.User
	err := h.DB.Preload("DoctorProfile").
		Where("id = ? AND role = ?", id, models.RoleDoctor).
		First(&doctor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if doctor.DoctorProfile == nil || doctor.DoctorProfile.ApprovalStatus != models.ApprovalApproved {
		utils.NotFound(c, "Doctor not found")
		return
	}

	utils.Success(c, "Doctor fetched successfully", doctor.Sanitize())
}

// ApproveDoctorRequest represents the request body for a doctor approval decision.
type ApproveDoctorRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

// ApproveDoctor handles an admin's approval decision on a doctor profile.
func (h *UserHandler) ApproveDoctor(c *gin.Context) {
	id := c.Param("id")

	var req ApproveDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", id).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	profile.ApprovalStatus = models.ApprovalStatus(req.Status)
	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to update approval status: "+err.Error())
		return
	}

	message := "Your doctor profile has been approved. Patients can now book appointments with you."
	if profile.ApprovalStatus == models.ApprovalRejected {
		message = "Your doctor profile application has been rejected."
	}
	h.notify(profile.UserID, realtime.EventNotificationNew, message)

	utils.Success(c, "Doctor approval status updated", profile)
}

// FeatureDoctorRequest represents the request body for featuring a doctor.
type FeatureDoctorRequest struct {
	Featured bool `json:"featured"`
	// Days the featured flag should last; 0 means indefinitely.
	Days int `json:"days"`
}

// FeatureDoctor handles marking a doctor as featured in the directory. Admin only.
func (h *UserHandler) FeatureDoctor(c *gin.Context) {
	id := c.Param("id")

	var req FeatureDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", id).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	profile.Featured = req.Featured
	profile.FeaturedUntil = nil
	if req.Featured && req.Days > 0 {
		until := time.Now().AddDate(0, 0, req.Days)
		profile.FeaturedUntil = &until
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to update featured status: "+err.Error())
		return
	}

	utils.Success(c, "Doctor featured status updated", profile)
}

// notify persists a user-scoped notification and pushes it over the hub.
func (h *UserHandler) notify(userID, kind, message string) {
	notification := models.Notification{
		Scope:   userID,
		Kind:    kind,
		Message: message,
	}
	h.DB.Create(&notification)

	if h.Publisher != nil {
		h.Publisher.Publish(context.Background(), realtime.Event{
			Type:    kind,
			Scope:   userID,
			Message: message,
		})
	}
}
