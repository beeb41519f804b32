package governance

import (
	"errors"
	"sync/atomic"

	"stakegov/core/events"
	"stakegov/internal/address"
	"stakegov/internal/runtime"
	"stakegov/internal/stakeoracle"
)

// AuditSink receives one AuditRecord per state-mutating operation. It is a
// narrow interface so the secondary read-model store (internal/auditstore)
// is the only thing that has to implement it; nothing in this package reads
// records back.
type AuditSink interface {
	Append(AuditRecord)
}

type noopAuditSink struct{}

func (noopAuditSink) Append(AuditRecord) {}

// Engine is the program's entry point: component H (request router) calls
// into it, and it in turn drives B (readers), C (threshold), D (state
// machine), E (tally), F (instruction editor), and G (dispatcher). A single
// Engine is safe to share across requests so long as callers serialize
// access per proposal address — this package assumes that guarantee is
// held by its caller (cmd/stakegovd's per-address mutex), not by itself.
type Engine struct {
	ProgramID address.Address
	Store     *Store
	Stake     stakeoracle.Reader
	Clock     runtime.Clock
	Invoker   runtime.Invoker
	Audit     AuditSink
	Events    events.Emitter

	seq uint64
}

// NewEngine wires an Engine from its required collaborators. Audit and
// Events may be nil, in which case audit records are discarded and no
// events are emitted.
func NewEngine(programID address.Address, store *Store, stake stakeoracle.Reader, clock runtime.Clock, invoker runtime.Invoker, audit AuditSink, emitter events.Emitter) *Engine {
	if audit == nil {
		audit = noopAuditSink{}
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Engine{ProgramID: programID, Store: store, Stake: stake, Clock: clock, Invoker: invoker, Audit: audit, Events: emitter}
}

func (e *Engine) now() uint64 {
	return uint64(e.Clock.Now().Unix())
}

func wrapStakeOracleErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, stakeoracle.ErrNotFound) {
		return newError(CodeUninitializedAccount, "foreign stake record not found")
	}
	return err
}

func (e *Engine) audit(event AuditEvent, proposal, actor address.Address, details string) {
	seq := atomic.AddUint64(&e.seq, 1)
	record := AuditRecord{Sequence: seq, Event: event, Proposal: proposal, Actor: actor, Details: details, Timestamp: e.Clock.Now()}
	e.Audit.Append(record)
	e.Events.Emit(Event{AuditRecord: record})
}
