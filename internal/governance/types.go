package governance

import (
	"time"

	"stakegov/internal/address"
)

// ProposalStatus enumerates the lifecycle phases of a governance proposal.
type ProposalStatus uint8

const (
	StatusDraft ProposalStatus = iota
	StatusVoting
	StatusAccepted
	StatusRejected
	StatusCancelled
	StatusProcessed
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusVoting:
		return "voting"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	case StatusProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further mutation.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case StatusCancelled, StatusRejected, StatusProcessed:
		return true
	default:
		return false
	}
}

// Election identifies a voter's choice on a proposal.
type Election uint8

const (
	ElectionFor Election = iota
	ElectionAgainst
	ElectionDidNotVote
)

func (e Election) String() string {
	switch e {
	case ElectionFor:
		return "for"
	case ElectionAgainst:
		return "against"
	case ElectionDidNotVote:
		return "did_not_vote"
	default:
		return "unknown"
	}
}

func (e Election) valid() bool {
	switch e {
	case ElectionFor, ElectionAgainst, ElectionDidNotVote:
		return true
	default:
		return false
	}
}

// AccountMeta mirrors the host runtime's per-invocation account descriptor:
// a key plus the signer/writable flags carried alongside it.
type AccountMeta struct {
	Key        address.Address
	IsSigner   bool
	IsWritable bool
}

// ProposalInstruction is one downstream call bundled into a proposal.
type ProposalInstruction struct {
	ProgramID    address.Address
	AccountMetas []AccountMeta
	Data         []byte
	Executed     bool
}

// ProposalTransaction is the variable-length, ordered instruction list owned
// by a single proposal. Its packed encoding is the only length-prefixed
// record in the data model; every other record is a fixed-size struct
// addressed by offset.
type ProposalTransaction struct {
	Proposal     address.Address
	Instructions []ProposalInstruction
	Bump         uint8
}

// GovernanceConfig is the singleton, per-stake-pool parameter set. A copy is
// embedded in every Proposal at creation time so UpdateGovernance cannot
// retroactively change the rules an in-flight proposal is being judged by.
type GovernanceConfig struct {
	CooldownPeriodSeconds       uint64
	VotingPeriodSeconds         uint64
	ProposalAcceptanceThreshold uint32
	ProposalRejectionThreshold  uint32
	StakeConfigAddress          address.Address
	Bump                        uint8
}

// Proposal is a governance action bundling ordered instructions, a tally,
// and a status. VotingStartTimestamp and CooldownTimestamp are nil until
// set; once CooldownTimestamp is set it is never cleared.
type Proposal struct {
	Author               address.Address
	CreationTimestamp    int64
	VotingStartTimestamp *uint64
	CooldownTimestamp    *uint64
	StakeFor             uint64
	StakeAgainst         uint64
	StakeAbstained       uint64
	Status               ProposalStatus
	GovernanceConfig     GovernanceConfig
}

// ProposalVote records one voter's weight snapshot and current election
// against a single proposal. Created by the first Vote; mutated only by
// SwitchVote; never deleted.
type ProposalVote struct {
	Proposal address.Address
	Voter    address.Address
	Stake    uint64
	Election Election
	Bump     uint8
}

// AuditEvent identifies the lifecycle milestone captured by an audit record.
type AuditEvent string

const (
	AuditEventGovernanceInitialized AuditEvent = "governance_initialized"
	AuditEventGovernanceUpdated     AuditEvent = "governance_updated"
	AuditEventProposalCreated       AuditEvent = "proposal_created"
	AuditEventInstructionPushed     AuditEvent = "instruction_pushed"
	AuditEventInstructionRemoved    AuditEvent = "instruction_removed"
	AuditEventVotingBegan           AuditEvent = "voting_began"
	AuditEventProposalCancelled     AuditEvent = "proposal_cancelled"
	AuditEventVoteCast              AuditEvent = "vote_cast"
	AuditEventVoteSwitched          AuditEvent = "vote_switched"
	AuditEventStatusChanged         AuditEvent = "status_changed"
	AuditEventInstructionProcessed  AuditEvent = "instruction_processed"
)

// AuditRecord is an append-only trail entry, persisted outside the
// invariant-bearing account store as a queryable read-model projection.
type AuditRecord struct {
	Sequence  uint64
	Timestamp time.Time
	Event     AuditEvent
	Proposal  address.Address
	Actor     address.Address
	Details   string
}
