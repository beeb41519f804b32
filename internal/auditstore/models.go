// Package auditstore is the secondary, queryable read-model projection of
// governance activity: an append-only audit log plus a table of
// denormalized proposal snapshots. It participates in no
// invariant of internal/governance and is never read back into the state
// machine; it exists purely behind read-only query endpoints.
package auditstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRecord mirrors governance.AuditRecord for SQL persistence, keyed by
// a generated UUID rather than the in-memory Sequence counter so rows are
// stable across store restarts.
type AuditRecord struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	Sequence  uint64    `gorm:"index"`
	Timestamp time.Time `gorm:"index"`
	Event     string    `gorm:"size:64;index"`
	Proposal  string    `gorm:"size:64;index"`
	Actor     string    `gorm:"size:64;index"`
	Details   string    `gorm:"type:text"`
}

// ProposalSnapshot is a denormalized view of a proposal's status and tally,
// written by Store.UpsertSnapshot. Appending audit records does not update
// it, and the daemon does not read it.
type ProposalSnapshot struct {
	Proposal       string `gorm:"size:64;primaryKey"`
	Author         string `gorm:"size:64;index"`
	Status         string `gorm:"size:32;index"`
	StakeFor       uint64
	StakeAgainst   uint64
	StakeAbstained uint64
	UpdatedAt      time.Time
}

// AutoMigrate creates or updates the audit/read-model schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AuditRecord{}, &ProposalSnapshot{})
}
