package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/storage"
	"tritmo/internal/utils"
)

// UploadHandler handles profile images and doctor signatures. Files live in
// object storage; the database keeps only the object key.
type UploadHandler struct {
	DB       *gorm.DB
	Uploader *storage.Uploader
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(db *gorm.DB, uploader *storage.Uploader) *UploadHandler {
	return &UploadHandler{DB: db, Uploader: uploader}
}

const maxUploadBytes = 5 << 20 // 5 MiB

var allowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadProfileImage handles replacing the caller's profile picture.
func (h *UploadHandler) UploadProfileImage(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	key, ok := h.storeImage(c, fmt.Sprintf("profiles/%s", userID))
	if !ok {
		return
	}

	err := h.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("profile_image_key", key).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to save profile image: "+err.Error())
		return
	}

	utils.Success(c, "Profile image uploaded successfully", gin.H{"key": key})
}

// GetProfileImage handles streaming a user's profile picture.
func (h *UploadHandler) GetProfileImage(c *gin.Context) {
	var user models.User
	if err := h.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}
	if user.ProfileImageKey == "" {
		utils.NotFound(c, "User has no profile image")
		return
	}

	h.stream(c, user.ProfileImageKey)
}

// UploadSignature handles a doctor uploading the signature image stamped on
// finalized prescriptions and invoices.
func (h *UploadHandler) UploadSignature(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		utils.NotFound(c, "Doctor profile not found")
		return
	}

	key, ok := h.storeImage(c, fmt.Sprintf("signatures/%s", userID))
	if !ok {
		return
	}

	profile.SignatureKey = key
	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to save signature: "+err.Error())
		return
	}

	utils.Success(c, "Signature uploaded successfully", gin.H{"key": key})
}

// storeImage validates the multipart file and pushes it to object storage,
// returning the stored key. It writes the error response itself on failure.
func (h *UploadHandler) storeImage(c *gin.Context, prefix string) (string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "A file field named 'file' is required")
		return "", false
	}
	if file.Size > maxUploadBytes {
		utils.BadRequest(c, "File exceeds the 5 MB limit")
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := allowedImageExtensions[ext]
	if !ok {
		utils.BadRequest(c, "Only PNG and JPEG images are accepted")
		return "", false
	}

	src, err := file.Open()
	if err != nil {
		utils.InternalServerError(c, "Failed to read upload: "+err.Error())
		return "", false
	}
	defer src.Close()

	key := prefix + ext
	if err := h.Uploader.Upload(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		utils.InternalServerError(c, "Failed to store file: "+err.Error())
		return "", false
	}
	return key, true
}

// stream copies an object from storage into the response.
func (h *UploadHandler) stream(c *gin.Context, key string) {
	obj, err := h.Uploader.Fetch(c.Request.Context(), key)
	if err != nil {
		utils.NotFound(c, "File not found")
		return
	}
	defer obj.Close()

	contentType := allowedImageExtensions[strings.ToLower(filepath.Ext(key))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, obj)
}
