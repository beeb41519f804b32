// Package stakeoracle models the external staking subsystem this program
// reads from but never writes to: a global stake config summarizing
// aggregate delegated stake, and per-staker stake records. Both record
// kinds are owned by a separate program; this package only knows how to
// read them.
package stakeoracle

import (
	"errors"
	"sync"

	"stakegov/internal/address"
)

// ErrNotFound is returned when a stake config or stake record address has
// no corresponding foreign record.
var ErrNotFound = errors.New("stakeoracle: record not found")

// StakeConfig is the foreign, read-only record summarizing aggregate
// delegated stake for a pool. It is the denominator of every threshold
// comparison in internal/governance.
type StakeConfig struct {
	Address             address.Address
	TotalDelegatedStake uint64
}

// StakeRecord is a foreign, read-only per-staker record. ValidatorVote
// identifies the validator the stake is delegated to; address derivation
// for ProposalVote binds a StakeRecord's address to (ValidatorVote,
// StakeConfig) by convention of the oracle program, not this one.
type StakeRecord struct {
	Address       address.Address
	Authority     address.Address
	ValidatorVote address.Address
	StakeConfig   address.Address
	Amount        uint64
}

// Reader loads foreign stake records. CreateProposal, Vote, and SwitchVote
// all consult it; nothing in this program ever calls a mutating method,
// because there is none — it does not exist in this interface.
type Reader interface {
	LoadStakeConfig(addr address.Address) (StakeConfig, error)
	LoadStakeRecord(addr address.Address) (StakeRecord, error)
}

// MemReader is an in-memory Reader for tests and local daemon development,
// seeded directly rather than synchronized from a real stake oracle program.
type MemReader struct {
	mu      sync.RWMutex
	configs map[address.Address]StakeConfig
	records map[address.Address]StakeRecord
}

func NewMemReader() *MemReader {
	return &MemReader{
		configs: make(map[address.Address]StakeConfig),
		records: make(map[address.Address]StakeRecord),
	}
}

func (m *MemReader) PutStakeConfig(cfg StakeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.Address] = cfg
}

func (m *MemReader) PutStakeRecord(rec StakeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Address] = rec
}

func (m *MemReader) LoadStakeConfig(addr address.Address) (StakeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[addr]
	if !ok {
		return StakeConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (m *MemReader) LoadStakeRecord(addr address.Address) (StakeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[addr]
	if !ok {
		return StakeRecord{}, ErrNotFound
	}
	return rec, nil
}
