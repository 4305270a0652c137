// Package policy decides which roles may perform which operations.
package policy

import (
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"
)

type Operation string

const (
	SaleRecord       Operation = "sale:record"
	ItemView         Operation = "item:view"
	ItemCreate       Operation = "item:create"
	ItemUpdate       Operation = "item:update"
	ItemUpdatePrice  Operation = "item:update_price"
	ItemRetire       Operation = "item:retire"
	CreditView       Operation = "credit:view"
	CreditCharge     Operation = "credit:charge"
	CreditPayment    Operation = "credit:payment"
	CreditExport     Operation = "credit:export"
	CreditReconcile  Operation = "credit:reconcile"
	DashboardView    Operation = "dashboard:view"
	DashboardFinance Operation = "dashboard:finance"
	ActivityView     Operation = "activity:view"
	UserView         Operation = "user:view"
	UserManage       Operation = "user:manage"
)

var ErrForbidden = errors.New("operation not permitted")

// AllOperations lists every operation in display order.
var AllOperations = []Operation{
	SaleRecord,
	ItemView, ItemCreate, ItemUpdate, ItemUpdatePrice, ItemRetire,
	CreditView, CreditCharge, CreditPayment, CreditExport, CreditReconcile,
	DashboardView, DashboardFinance,
	ActivityView,
	UserView, UserManage,
}

var entryOnly = map[Operation]bool{
	SaleRecord:    true,
	ItemView:      true,
	DashboardView: true,
}

var managerExcluded = map[Operation]bool{
	UserManage:      true,
	CreditReconcile: true,
}

// Allow reports whether role may perform op. Unknown roles get nothing.
func Allow(role string, op Operation) bool {
	switch role {
	case model.RoleAdmin:
		return isKnown(op)
	case model.RoleManager:
		return isKnown(op) && !managerExcluded[op]
	case model.RoleEntryOnly:
		return entryOnly[op]
	default:
		return false
	}
}

// Check is Allow as an error, wrapping ErrForbidden.
func Check(role string, op Operation) error {
	if Allow(role, op) {
		return nil
	}
	return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, role, op)
}

// Permissions returns the operations granted to role.
func Permissions(role string) []Operation {
	ops := make([]Operation, 0, len(AllOperations))
	for _, op := range AllOperations {
		if Allow(role, op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// Privileged roles may create or reactivate items while recording a sale.
func Privileged(role string) bool {
	return Allow(role, ItemCreate)
}

func isKnown(op Operation) bool {
	for _, known := range AllOperations {
		if known == op {
			return true
		}
	}
	return false
}
