package model

import "time"

// Activity is one line of the user_activity audit log.
type Activity struct {
	BaseModel
	UserID    string    `gorm:"type:varchar(64);index" json:"userId"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	Timestamp time.Time `gorm:"column:logged_at;not null;index" json:"timestamp"`
}

func (Activity) TableName() string {
	return "user_activity"
}

// Activity actions
const (
	ActionLogin           = "login"
	ActionLogout          = "logout"
	ActionPasswordChanged = "password_changed"
	ActionSaleRecorded    = "sale_recorded"
	ActionCreditCharged   = "credit_charged"
	ActionPaymentRecorded = "payment_recorded"
	ActionItemCreated     = "item_created"
	ActionItemUpdated     = "item_updated"
	ActionItemRetired     = "item_retired"
	ActionUserCreated     = "user_created"
	ActionUserUpdated     = "user_updated"
)
