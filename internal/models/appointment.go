package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment.
// This is the single canonical vocabulary; lower-case or mixed variants
// are rejected at the binding layer.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusAccepted  AppointmentStatus = "ACCEPTED"
	StatusApproved  AppointmentStatus = "APPROVED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusRejected  AppointmentStatus = "REJECTED"
)

// PaymentStatus represents the settlement state of the appointment's payment sub-record.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod represents how the patient chose to pay.
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "CARD"
	MethodMobile PaymentMethod = "MOBILE"
	MethodCash   PaymentMethod = "CASH"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCard, MethodMobile, MethodCash:
		return true
	}
	return false
}

// Appointment represents a scheduled consultation. The slot is a "HH:MM"
// start time derived from the doctor's working hours at booking time.
// Appointments are never deleted, only moved through statuses.
type Appointment struct {
	BaseModel
	PatientID   string            `gorm:"size:36;index" json:"patientId"`
	DoctorID    string            `gorm:"size:36;index" json:"doctorId"`
	Date        time.Time         `json:"date"`
	Slot        string            `gorm:"size:5" json:"slot"`
	Status      AppointmentStatus `gorm:"size:20;default:'PENDING'" json:"status"`
	PatientName string            `gorm:"size:200" json:"patientName"`
	Contact     string            `gorm:"size:100" json:"contact"`
	Reason      string            `gorm:"size:255" json:"reason,omitempty"`
	Reference   string            `gorm:"size:64;index" json:"reference"`

	// Payment sub-record
	PaymentStatus PaymentStatus `gorm:"size:20;default:'UNPAID'" json:"paymentStatus"`
	PaymentMethod PaymentMethod `gorm:"size:20" json:"paymentMethod"`
	Amount        float64       `json:"amount"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
