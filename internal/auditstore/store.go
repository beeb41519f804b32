package auditstore

import (
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stakegov/internal/governance"
)

// Store persists governance.AuditRecords and proposal snapshots to a SQL
// database. It implements governance.AuditSink so an Engine can be wired
// directly to it, but nothing in internal/governance ever reads from it
// back.
type Store struct {
	db *gorm.DB
}

// Open connects to a SQL backend and migrates its schema. driver is either
// "sqlite" (local development and tests, backed by the pure-Go
// glebarez/sqlite dialector over modernc.org/sqlite, no cgo required) or
// "postgres" (production).
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("auditstore: unknown driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("auditstore: connect: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auditstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Append satisfies governance.AuditSink. A write failure is logged, never
// returned or panicked on: the audit log is a best-effort side channel, and
// the caller holding the account-store transaction must not be made to
// fail because of it.
func (s *Store) Append(record governance.AuditRecord) {
	row := AuditRecord{
		ID:        uuid.New(),
		Sequence:  record.Sequence,
		Timestamp: record.Timestamp,
		Event:     string(record.Event),
		Proposal:  record.Proposal.String(),
		Actor:     record.Actor.String(),
		Details:   record.Details,
	}
	if err := s.db.Create(&row).Error; err != nil {
		slog.Error("auditstore: append failed", "event", row.Event, "proposal", row.Proposal, "error", err)
	}
}

// UpsertSnapshot records a proposal's current status and tally, taken from
// a governance.Proposal since no single AuditRecord carries the full tally.
// cmd/stakegovd does not call it, so snapshots exist only where a caller
// writes them explicitly.
func (s *Store) UpsertSnapshot(proposalAddr string, proposal governance.Proposal) error {
	snap := ProposalSnapshot{
		Proposal:       proposalAddr,
		Author:         proposal.Author.String(),
		Status:         proposal.Status.String(),
		StakeFor:       proposal.StakeFor,
		StakeAgainst:   proposal.StakeAgainst,
		StakeAbstained: proposal.StakeAbstained,
	}
	return s.db.Save(&snap).Error
}

// ListAuditTrail returns every audit record for a proposal, oldest first.
func (s *Store) ListAuditTrail(proposalAddr string) ([]AuditRecord, error) {
	var rows []AuditRecord
	err := s.db.Where("proposal = ?", proposalAddr).Order("sequence asc").Find(&rows).Error
	return rows, err
}

// GetSnapshot returns the current denormalized snapshot for a proposal.
func (s *Store) GetSnapshot(proposalAddr string) (ProposalSnapshot, error) {
	var snap ProposalSnapshot
	err := s.db.Where("proposal = ?", proposalAddr).First(&snap).Error
	return snap, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
