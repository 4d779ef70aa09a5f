package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator stores till operators with role-based access.
// Role: "cashier" | "supervisor" | "admin"
type Operator struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleCashier    = "cashier"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// CanAuthorizeRefunds reports whether this operator may act as the
// authorizing supervisor in the cancellation workflow.
func (o *Operator) CanAuthorizeRefunds() bool {
	return o.Role == RoleSupervisor || o.Role == RoleAdmin
}
