package models

import (
	"strings"
	"time"
)

// ApprovalStatus represents the admin review state of a doctor profile
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Weekday codes used in DoctorProfile.WorkingDays
const (
	DaySun = "SUN"
	DayMon = "MON"
	DayTue = "TUE"
	DayWed = "WED"
	DayThu = "THU"
	DayFri = "FRI"
	DaySat = "SAT"
)

var weekdayCodes = [7]string{DaySun, DayMon, DayTue, DayWed, DayThu, DayFri, DaySat}

// DoctorProfile holds the scheduling and review data attached to a doctor user.
// Working hours are wall-clock "HH:MM" strings; bookable slots are always
// derived from them at request time, never stored.
type DoctorProfile struct {
	BaseModel
	UserID              string         `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialization      string         `gorm:"size:100" json:"specialization"`
	Fee                 float64        `json:"fee"`
	WorkingDays         string         `gorm:"size:64" json:"workingDays"` // Comma-separated weekday codes, e.g. "MON,TUE,WED"
	WorkingHoursFrom    string         `gorm:"size:5" json:"workingHoursFrom"`
	WorkingHoursTo      string         `gorm:"size:5" json:"workingHoursTo"`
	SlotDurationMinutes int            `json:"slotDurationMinutes"`
	ApprovalStatus      ApprovalStatus `gorm:"size:20;default:'PENDING'" json:"approvalStatus"`
	Featured            bool           `gorm:"default:false" json:"featured"`
	FeaturedUntil       *time.Time     `json:"featuredUntil,omitempty"`
	SignatureKey        string         `gorm:"size:512" json:"-"` // Object storage key for the doctor's signature image

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// WorksOn reports whether the profile's working days include the given weekday.
func (p *DoctorProfile) WorksOn(day time.Weekday) bool {
	if p.WorkingDays == "" {
		return false
	}
	code := weekdayCodes[int(day)%7]
	for _, d := range strings.Split(p.WorkingDays, ",") {
		if strings.TrimSpace(d) == code {
			return true
		}
	}
	return false
}

// IsFeatured reports whether the featured flag is set and not yet expired.
func (p *DoctorProfile) IsFeatured(now time.Time) bool {
	if !p.Featured {
		return false
	}
	if p.FeaturedUntil != nil && p.FeaturedUntil.Before(now) {
		return false
	}
	return true
}
