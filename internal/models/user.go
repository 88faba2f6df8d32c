package models

import (
	"fmt"
	"time"
)

// Role gates the operator endpoints. Customers never reach the admin
// order board.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string. Unknown roles error and fall back
// to customer, so a tampered claim never grants more than that.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return Role(s), nil
	}
	return RoleCustomer, fmt.Errorf("unknown role %q", s)
}

// Staff reports whether the role may drive order status transitions.
func (r Role) Staff() bool {
	return r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID          int64     `json:"id" example:"1"`
	Email       string    `json:"email" example:"user@example.com"`
	Name        string    `json:"name" example:"Juan dela Cruz"`
	PhoneNumber string    `json:"phone_number" example:"+639171234567"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
