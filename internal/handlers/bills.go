package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tritmo/internal/invoice"
	"tritmo/internal/mailer"
	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/payments"
	"tritmo/internal/utils"
)

// BillHandler handles bills and their settlement, either offline (cash or
// mobile, recorded by hand) or online through the card gateway.
type BillHandler struct {
	DB      *gorm.DB
	Gateway *payments.Gateway
	Mailer  *mailer.Mailer
	Log     *zap.Logger
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(db *gorm.DB, gateway *payments.Gateway, m *mailer.Mailer, log *zap.Logger) *BillHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillHandler{DB: db, Gateway: gateway, Mailer: m, Log: log}
}

// GetBills handles listing bills visible to the caller.
func (h *BillHandler) GetBills(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Appointment").Order("created_at DESC")

	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleAdmin:
		if patientID := c.Query("patientId"); patientID != "" {
			query = query.Where("patient_id = ?", patientID)
		}
	default:
		utils.Forbidden(c, "Only patients and admins can view bills")
		return
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bills []models.Bill
	if err := query.Find(&bills).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch bills: "+err.Error())
		return
	}

	utils.Success(c, "Bills fetched successfully", bills)
}

// DownloadInvoice handles rendering a bill as a PDF invoice.
func (h *BillHandler) DownloadInvoice(c *gin.Context) {
	bill, ok := h.loadBill(c)
	if !ok {
		return
	}

	pdf, err := h.renderInvoice(bill)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate invoice: "+err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", bill.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// EmailInvoice handles mailing the PDF invoice to the patient.
func (h *BillHandler) EmailInvoice(c *gin.Context) {
	bill, ok := h.loadBill(c)
	if !ok {
		return
	}

	var patient models.User
	if err := h.DB.First(&patient, "id = ?", bill.PatientID).Error; err != nil {
		utils.InternalServerError(c, "Failed to load patient: "+err.Error())
		return
	}

	pdf, err := h.renderInvoice(bill)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate invoice: "+err.Error())
		return
	}

	subject := "Your Tritmo invoice"
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your invoice is attached.</p>", patient.FirstName)
	attachment := fmt.Sprintf("invoice-%s.pdf", bill.ID)
	if err := h.Mailer.Send(patient.Email, subject, body, attachment, pdf); err != nil {
		utils.InternalServerError(c, "Failed to send invoice email: "+err.Error())
		return
	}

	utils.Success(c, "Invoice emailed successfully", nil)
}

// PayOfflineRequest represents the request body for recording an offline payment.
type PayOfflineRequest struct {
	Method string `json:"method" binding:"required,oneof=CASH MOBILE"`
}

// PayOffline handles settling a bill with cash or mobile money.
func (h *BillHandler) PayOffline(c *gin.Context) {
	bill, ok := h.loadBill(c)
	if !ok {
		return
	}

	var req PayOfflineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if bill.Status == models.PaymentPaid {
		utils.Conflict(c, "This bill is already paid")
		return
	}

	bill.Status = models.PaymentPaid
	bill.Method = models.PaymentMethod(req.Method)
	if err := h.settle(&bill); err != nil {
		utils.InternalServerError(c, "Failed to record payment: "+err.Error())
		return
	}

	utils.Success(c, "Payment recorded successfully", bill)
}

// PayOnline handles starting a card payment: it creates a gateway order and
// stores its id on the bill for the completion callback.
func (h *BillHandler) PayOnline(c *gin.Context) {
	bill, ok := h.loadBill(c)
	if !ok {
		return
	}

	if bill.Status == models.PaymentPaid {
		utils.Conflict(c, "This bill is already paid")
		return
	}
	if h.Gateway == nil {
		utils.InternalServerError(c, "Card payments are not configured")
		return
	}

	orderID, err := h.Gateway.CreateOrder(bill.Amount, bill.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to create payment order: "+err.Error())
		return
	}

	bill.Method = models.MethodCard
	bill.PaymentRef = orderID
	if err := h.DB.Save(&bill).Error; err != nil {
		utils.InternalServerError(c, "Failed to store payment order: "+err.Error())
		return
	}

	utils.Success(c, "Payment order created", gin.H{
		"billId":  bill.ID,
		"orderId": orderID,
		"amount":  bill.Amount,
	})
}

// CompleteOnlinePaymentRequest represents the gateway callback payload.
type CompleteOnlinePaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// CompleteOnlinePayment handles the post-checkout callback that marks a card
// payment as settled.
func (h *BillHandler) CompleteOnlinePayment(c *gin.Context) {
	bill, ok := h.loadBill(c)
	if !ok {
		return
	}

	var req CompleteOnlinePaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if bill.Status == models.PaymentPaid {
		utils.Conflict(c, "This bill is already paid")
		return
	}
	if bill.PaymentRef == "" || bill.PaymentRef != req.OrderID {
		utils.BadRequest(c, "Order id does not match this bill")
		return
	}

	bill.Status = models.PaymentPaid
	if err := h.settle(&bill); err != nil {
		utils.InternalServerError(c, "Failed to record payment: "+err.Error())
		return
	}

	utils.Success(c, "Payment completed successfully", bill)
}

// settle saves the paid bill and mirrors the settlement onto the appointment's
// payment sub-record.
func (h *BillHandler) settle(bill *models.Bill) error {
	return h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(bill).Error; err != nil {
			return err
		}
		return tx.Model(&models.Appointment{}).
			Where("id = ?", bill.AppointmentID).
			Updates(map[string]any{
				"payment_status": bill.Status,
				"payment_method": bill.Method,
			}).Error
	})
}

// loadBill fetches the bill from the id param, enforcing that patients only
// reach their own bills. It writes the error response itself on failure.
func (h *BillHandler) loadBill(c *gin.Context) (models.Bill, bool) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	var bill models.Bill
	if err := h.DB.Preload("Appointment").First(&bill, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Bill not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return models.Bill{}, false
	}

	if role != models.RoleAdmin && bill.PatientID != userID {
		utils.Forbidden(c, "You do not have access to this bill")
		return models.Bill{}, false
	}
	return bill, true
}

// renderInvoice loads the parties and renders the bill as a PDF.
func (h *BillHandler) renderInvoice(bill models.Bill) ([]byte, error) {
	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", bill.AppointmentID).Error; err != nil {
		return nil, fmt.Errorf("loading appointment: %w", err)
	}
	var doctor, patient models.User
	if err := h.DB.First(&doctor, "id = ?", appointment.DoctorID).Error; err != nil {
		return nil, fmt.Errorf("loading doctor: %w", err)
	}
	if err := h.DB.First(&patient, "id = ?", bill.PatientID).Error; err != nil {
		return nil, fmt.Errorf("loading patient: %w", err)
	}
	return invoice.GeneratePDF(bill, appointment, doctor, patient)
}
