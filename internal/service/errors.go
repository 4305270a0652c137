package service

import (
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/validator"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrCreditNotFound     = errors.New("credit record not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrItemExists         = errors.New("an item with this name already exists")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionExpired     = errors.New("session expired (logged in on another device)")
	ErrEmailExists        = errors.New("email already exists")
	ErrRoleNotFound       = errors.New("role not found")
)

// ActivityLogger records audit entries without blocking the caller.
type ActivityLogger interface {
	Record(actor model.Actor, action, details string)
}

// EventPublisher pushes change notifications to connected terminals.
type EventPublisher interface {
	Publish(event ws.Event)
}

func validationError(errs []*validator.ErrorResponse) error {
	first := errs[0]
	return fmt.Errorf("%w: field '%s' failed on tag '%s'", ErrValidation, first.FailedField, first.Tag)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func eventUser(actor model.Actor) *ws.EventUser {
	return &ws.EventUser{
		ID:    actor.ID(),
		Name:  actor.Name,
		Email: actor.Email,
	}
}
