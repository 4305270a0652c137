package model

// Role represents user roles in the system
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // admin, manager, entry-only
	Name        string `gorm:"type:varchar(100)" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// Role codes as constants
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleEntryOnly = "entry-only"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full access including user management and reconciliation",
	},
	{
		Code:        RoleManager,
		Name:        "Manager",
		Description: "Sales, inventory, credit payments and reports",
	},
	{
		Code:        RoleEntryOnly,
		Name:        "Sales Entry",
		Description: "Records sales against existing items",
	},
}
