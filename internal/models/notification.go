package models

// ScopeAll addresses a notification to every connected user.
const ScopeAll = "all"

// Notification is created server-side and either pushed over the realtime
// channel or fetched by polling. Scope is a user id, a role name, or "all";
// clients drop events whose scope does not match them. The only mutation is
// flipping the read flag.
type Notification struct {
	BaseModel
	Scope   string `gorm:"size:64;index" json:"scope"`
	Kind    string `gorm:"size:64" json:"kind"` // e.g. "notification.new", "appointment.reminder", "session.start"
	Message string `gorm:"size:500" json:"message"`
	Read    bool   `gorm:"default:false" json:"read"`
}

// AddressedTo reports whether a notification scope targets the given user.
func (n *Notification) AddressedTo(userID string, role Role) bool {
	return n.Scope == ScopeAll || n.Scope == userID || n.Scope == string(role)
}
