package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/utils"
)

// clinicalRecord is satisfied by the three patient record shapes: reports,
// diagnoses and notices. They share one create/list/delete implementation.
type clinicalRecord interface {
	models.Report | models.Diagnosis | models.Notice
	AuthorRef() string
	PatientRef() string
}

// RecordHandler handles patient clinical records. Doctors and admins write
// them; patients read their own; only the author may delete one.
type RecordHandler struct {
	DB *gorm.DB
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(db *gorm.DB) *RecordHandler {
	return &RecordHandler{DB: db}
}

// CreateRecordRequest represents the request body for writing a record.
type CreateRecordRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Summary   string `json:"summary"`
}

func createRecord[T clinicalRecord](h *RecordHandler, c *gin.Context, build func(req CreateRecordRequest, authorID string) T) {
	authorID, _ := middleware.GetUserIDFromContext(c)

	var req CreateRecordRequest
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

	record := build(req, authorID)
	if err := h.DB.Create(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to create record: "+err.Error())
		return
	}

	utils.Created(c, "Record created successfully", record)
}

func listRecords[T clinicalRecord](h *RecordHandler, c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Order("created_at DESC")

	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		} else {
			query = query.Where("author_id = ?", userID)
		}
	case models.RoleAdmin:
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		}
	default:
		utils.Forbidden(c, "Unknown role")
		return
	}

	var records []T
	if err := query.Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch records: "+err.Error())
		return
	}

	utils.Success(c, "Records fetched successfully", records)
}

func deleteRecord[T clinicalRecord](h *RecordHandler, c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var record T
	if err := h.DB.Where("id = ?", c.Param("id")).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if record.AuthorRef() != userID {
		utils.Forbidden(c, "Only the author can delete this record")
		return
	}

	if err := h.DB.Delete(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete record: "+err.Error())
		return
	}

	utils.Success(c, "Record deleted successfully", nil)
}

// Reports

func (h *RecordHandler) CreateReport(c *gin.Context) {
	createRecord(h, c, func(req CreateRecordRequest, authorID string) models.Report {
		return models.Report{PatientID: req.PatientID, AuthorID: authorID, Title: req.Title, Summary: req.Summary}
	})
}

func (h *RecordHandler) GetReports(c *gin.Context) { listRecords[models.Report](h, c) }

func (h *RecordHandler) DeleteReport(c *gin.Context) { deleteRecord[models.Report](h, c) }

// Diagnoses

func (h *RecordHandler) CreateDiagnosis(c *gin.Context) {
	createRecord(h, c, func(req CreateRecordRequest, authorID string) models.Diagnosis {
		return models.Diagnosis{PatientID: req.PatientID, AuthorID: authorID, Title: req.Title, Summary: req.Summary}
	})
}

func (h *RecordHandler) GetDiagnoses(c *gin.Context) { listRecords[models.Diagnosis](h, c) }

func (h *RecordHandler) DeleteDiagnosis(c *gin.Context) { deleteRecord[models.Diagnosis](h, c) }

// Notices

func (h *RecordHandler) CreateNotice(c *gin.Context) {
	createRecord(h, c, func(req CreateRecordRequest, authorID string) models.Notice {
		return models.Notice{PatientID: req.PatientID, AuthorID: authorID, Title: req.Title, Summary: req.Summary}
	})
}

func (h *RecordHandler) GetNotices(c *gin.Context) { listRecords[models.Notice](h, c) }

func (h *RecordHandler) DeleteNotice(c *gin.Context) { deleteRecord[models.Notice](h, c) }
