package models

import (
	"time"
)

// Bill is raised against an appointment when the booking is confirmed.
// Status follows the payment sub-record vocabulary.
type Bill struct {
	BaseModel
	AppointmentID string        `gorm:"size:36;index" json:"appointmentId"`
	PatientID     string        `gorm:"size:36;index" json:"patientId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `gorm:"size:20;default:'UNPAID'" json:"status"`
	Method        PaymentMethod `gorm:"size:20" json:"method,omitempty"`
	DueDate       time.Time     `json:"dueDate"`
	PaymentRef    string        `gorm:"size:100" json:"paymentRef,omitempty"` // Gateway order id for CARD payments

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
	Patient     User        `gorm:"foreignKey:PatientID" json:"-"`
}
