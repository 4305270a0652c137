package model

import "github.com/google/uuid"

// Actor is the identity an operation runs as. It is resolved per request and
// passed explicitly into every service call.
type Actor struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// ID is the opaque identifier stored in recordedBy/createdBy fields.
func (a Actor) ID() string {
	return a.UserID.String()
}

// Label is a human-readable name for logs and broadcast messages.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
