package models

// Prescription belongs to one patient/doctor pair. Once Finalized is set the
// record is immutable; handlers refuse edits and deletes with a conflict.
type Prescription struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	DoctorID  string `gorm:"size:36;index" json:"doctorId"`
	Notes     string `gorm:"type:text" json:"notes"`
	Finalized bool   `gorm:"default:false" json:"finalized"`

	Items   []PrescriptionItem `gorm:"foreignKey:PrescriptionID" json:"items"`
	Patient User               `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User               `gorm:"foreignKey:DoctorID" json:"-"`
}

// PrescriptionItem is a single medication entry. Position preserves the
// doctor's ordering.
type PrescriptionItem struct {
	BaseModel
	PrescriptionID string `gorm:"size:36;index" json:"prescriptionId"`
	Position       int    `json:"position"`
	Medication     string `gorm:"size:200;not null" json:"medication"`
	Dose           string `gorm:"size:100" json:"dose"`
	Frequency      string `gorm:"size:100" json:"frequency"`
}
