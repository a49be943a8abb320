package models

// Report is a summary record written for a patient by a doctor or admin.
// Deletable only by its author.
type Report struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	AuthorID  string `gorm:"size:36;index" json:"authorId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Summary   string `gorm:"type:text" json:"summary"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Author  User `gorm:"foreignKey:AuthorID" json:"-"`
}

// Diagnosis records a clinical finding for a patient.
type Diagnosis struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	AuthorID  string `gorm:"size:36;index" json:"authorId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Summary   string `gorm:"type:text" json:"summary"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Author  User `gorm:"foreignKey:AuthorID" json:"-"`
}

// Notice is a notice-board entry addressed to a patient.
type Notice struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	AuthorID  string `gorm:"size:36;index" json:"authorId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Summary   string `gorm:"type:text" json:"summary"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Author  User `gorm:"foreignKey:AuthorID" json:"-"`
}

// AuthorRef returns the id of the user who wrote the record.
func (r Report) AuthorRef() string    { return r.AuthorID }
func (d Diagnosis) AuthorRef() string { return d.AuthorID }
func (n Notice) AuthorRef() string    { return n.AuthorID }

// PatientRef returns the id of the patient the record is about.
func (r Report) PatientRef() string    { return r.PatientID }
func (d Diagnosis) PatientRef() string { return d.PatientID }
func (n Notice) PatientRef() string    { return n.PatientID }
