package model

import (
	"context"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/jinzhu/gorm"
)

// Audit groups and actions.
const (
	AuditGroupAuth = "auth"
	AuditGroupUser = "user"

	AuditActionRegister       = "register"
	AuditActionLogin          = "login"
	AuditActionRefresh        = "refresh"
	AuditActionChangePassword = "changePassword"
	AuditActionDelete         = "delete"
	AuditActionDeactivate     = "deactivate"
	AuditActionSetRole        = "setRole"
)

// AuditEntry defines auditing entries stored in the audit table.
type AuditEntry struct {
	ID                int64     `json:"id" gorm:"primary_key"`
	Group             string    `json:"group" gorm:"column:audit_group;index"`
	Action            string    `json:"action" gorm:"index"`
	Anomaly           string    `json:"anomaly" gorm:"index"`
	PrincipalID       int64     `json:"principalId" gorm:"index"`
	PrincipalUsername string    `json:"principalUsername" gorm:"index"`
	Data              string    `json:"data,omitempty"`
	IPAddr            string    `json:"ipAddr,omitempty" gorm:"index"`
	UserAgent         string    `json:"userAgent,omitempty"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Country           string    `json:"country,omitempty" gorm:"index"`
	Region            string    `json:"region,omitempty" gorm:"index"`
	City              string    `json:"city,omitempty" gorm:"index"`
	CreatedAt         time.Time `json:"createdAt" gorm:"index"`
}

// AuditEntryByID retrieves audit entries by ID.
func AuditEntryByID(db *gorm.DB, id int64) (*AuditEntry, error) {
	ae := new(AuditEntry)
	err := db.Where("id = ?", id).First(ae).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return ae, err
}

// AuditEntriesFor returns the newest audit entries of a principal.
func AuditEntriesFor(ctx context.Context, dbConn db.DB, principalID int64, limit int) ([]*AuditEntry, error) {
	entries := make([]*AuditEntry, 0)
	err := dbConn.Where("principal_id = ?", principalID).Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
