package governance

import (
	"stakegov/internal/address"
	"stakegov/internal/stakeoracle"
)

// InitializeGovernance creates the singleton GovernanceConfig for a stake
// pool. governanceAddr must equal the address derived from stakeConfigAddr;
// this is the one record this program creates without a preceding Draft
// proposal, since there is no governance to gate it yet.
func (e *Engine) InitializeGovernance(signer bool, governanceAddr, stakeConfigAddr address.Address, cooldown, voting uint64, acceptance, rejection uint32) (GovernanceConfig, error) {
	if !signer {
		return GovernanceConfig{}, newError(CodeMissingRequiredSignature, "initialize governance requires a signature")
	}
	derived, bump, err := address.Governance(e.ProgramID, stakeConfigAddr)
	if err != nil {
		return GovernanceConfig{}, err
	}
	if derived != governanceAddr {
		return GovernanceConfig{}, newError(CodeIncorrectGovernanceConfigAddress, "governance address does not match derivation")
	}
	cfg := GovernanceConfig{
		CooldownPeriodSeconds:       cooldown,
		VotingPeriodSeconds:         voting,
		ProposalAcceptanceThreshold: acceptance,
		ProposalRejectionThreshold:  rejection,
		StakeConfigAddress:          stakeConfigAddr,
		Bump:                        bump,
	}
	if err := e.Store.SaveGovernanceConfig(governanceAddr, cfg, true); err != nil {
		return GovernanceConfig{}, err
	}
	e.audit(AuditEventGovernanceInitialized, address.Address{}, address.Address{}, "")
	return cfg, nil
}

// UpdateGovernance mutates the live GovernanceConfig. It is only reachable
// through Dispatcher.ProcessInstruction executing a bundled
// UpdateGovernance instruction signed by the Treasury capability derived
// from the same stake config the config being updated belongs to; a direct
// caller that is not the Treasury signer is rejected.
func (e *Engine) UpdateGovernance(treasurySigner address.Signer, governanceAddr address.Address, cooldown, voting uint64, acceptance, rejection uint32) (GovernanceConfig, error) {
	cfg, err := e.Store.LoadGovernanceConfig(governanceAddr)
	if err != nil {
		return GovernanceConfig{}, err
	}
	treasuryAddr, _, err := address.Treasury(e.ProgramID, cfg.StakeConfigAddress)
	if err != nil {
		return GovernanceConfig{}, err
	}
	if treasurySigner.Address() != treasuryAddr {
		return GovernanceConfig{}, newError(CodeIncorrectAuthority, "update governance must be signed by the treasury")
	}
	cfg.CooldownPeriodSeconds = cooldown
	cfg.VotingPeriodSeconds = voting
	cfg.ProposalAcceptanceThreshold = acceptance
	cfg.ProposalRejectionThreshold = rejection
	if err := e.Store.SaveGovernanceConfig(governanceAddr, cfg, false); err != nil {
		return GovernanceConfig{}, err
	}
	e.audit(AuditEventGovernanceUpdated, address.Address{}, treasuryAddr, "")
	return cfg, nil
}

// CreateProposal opens a new proposal in Draft, snapshotting the current
// GovernanceConfig so later UpdateGovernance calls cannot retroactively
// change the rules this proposal is judged by.
func (e *Engine) CreateProposal(signer bool, author, stakeAddr, governanceAddr, proposalAddr address.Address, proposalTxAddr address.Address, proposalTxBump uint8) (Proposal, error) {
	if !signer {
		return Proposal{}, newError(CodeMissingRequiredSignature, "create proposal requires a signature")
	}
	stakeRecord, err := e.Stake.LoadStakeRecord(stakeAddr)
	if err != nil {
		return Proposal{}, wrapStakeOracleErr(err)
	}
	if stakeRecord.Authority != author {
		return Proposal{}, newError(CodeIncorrectAuthority, "caller does not own the provided stake record")
	}
	cfg, err := e.Store.LoadGovernanceConfig(governanceAddr)
	if err != nil {
		return Proposal{}, err
	}
	derivedGovernance, _, err := address.Governance(e.ProgramID, cfg.StakeConfigAddress)
	if err != nil {
		return Proposal{}, err
	}
	if derivedGovernance != governanceAddr {
		return Proposal{}, newError(CodeIncorrectGovernanceConfigAddress, "governance address does not match derivation")
	}
	if stakeRecord.StakeConfig != cfg.StakeConfigAddress {
		return Proposal{}, newError(CodeStakeConfigMismatch, "stake record does not belong to this stake config")
	}
	derivedProposalTx, _, err := address.ProposalTransaction(e.ProgramID, proposalAddr)
	if err != nil {
		return Proposal{}, err
	}
	if derivedProposalTx != proposalTxAddr {
		return Proposal{}, newError(CodeIncorrectProposalTransactionAddress, "proposal transaction address does not match derivation")
	}

	proposal := Proposal{
		Author:            author,
		CreationTimestamp: int64(e.now()),
		Status:            StatusDraft,
		GovernanceConfig:  cfg,
	}
	if err := e.Store.SaveProposal(proposalAddr, proposal, true); err != nil {
		return Proposal{}, err
	}
	tx := ProposalTransaction{Proposal: proposalAddr, Bump: proposalTxBump}
	if err := e.Store.SaveProposalTransaction(proposalTxAddr, tx, true); err != nil {
		return Proposal{}, err
	}
	e.audit(AuditEventProposalCreated, proposalAddr, author, "")
	return proposal, nil
}

func (e *Engine) requireAuthor(signer bool, caller, proposalAddr address.Address) (Proposal, error) {
	if !signer {
		return Proposal{}, newError(CodeMissingRequiredSignature, "operation requires a signature")
	}
	proposal, err := e.Store.LoadProposal(proposalAddr)
	if err != nil {
		return Proposal{}, err
	}
	if proposal.Author != caller {
		return Proposal{}, newError(CodeIncorrectAuthority, "caller is not the proposal author")
	}
	return proposal, nil
}

// PushInstruction appends a downstream instruction to the proposal's
// transaction list. Only allowed while the proposal is in Draft, and only
// by its author.
func (e *Engine) PushInstruction(signer bool, caller, proposalAddr, proposalTxAddr, downstreamProgramID address.Address, metas []AccountMeta, data []byte) error {
	proposal, err := e.requireAuthor(signer, caller, proposalAddr)
	if err != nil {
		return err
	}
	if proposal.Status != StatusDraft {
		return newError(CodeProposalIsImmutable, "instructions may only be edited while the proposal is in draft")
	}
	if err := e.checkProposalTransactionAddress(proposalAddr, proposalTxAddr); err != nil {
		return err
	}
	tx, err := e.Store.LoadProposalTransaction(proposalTxAddr)
	if err != nil {
		return err
	}
	next := pushInstruction(tx, downstreamProgramID, metas, data)
	if err := e.Store.SaveProposalTransaction(proposalTxAddr, next, false); err != nil {
		return err
	}
	e.audit(AuditEventInstructionPushed, proposalAddr, caller, "")
	return nil
}

// RemoveInstruction drops the instruction at index; subsequent indices
// shift down by one. Draft-only; author-gated.
func (e *Engine) RemoveInstruction(signer bool, caller, proposalAddr, proposalTxAddr address.Address, index uint32) error {
	proposal, err := e.requireAuthor(signer, caller, proposalAddr)
	if err != nil {
		return err
	}
	if proposal.Status != StatusDraft {
		return newError(CodeProposalIsImmutable, "instructions may only be edited while the proposal is in draft")
	}
	if err := e.checkProposalTransactionAddress(proposalAddr, proposalTxAddr); err != nil {
		return err
	}
	tx, err := e.Store.LoadProposalTransaction(proposalTxAddr)
	if err != nil {
		return err
	}
	next, err := removeInstruction(tx, index)
	if err != nil {
		return err
	}
	if err := e.Store.SaveProposalTransaction(proposalTxAddr, next, false); err != nil {
		return err
	}
	e.audit(AuditEventInstructionRemoved, proposalAddr, caller, "")
	return nil
}

func (e *Engine) checkProposalTransactionAddress(proposalAddr, proposalTxAddr address.Address) error {
	derived, _, err := address.ProposalTransaction(e.ProgramID, proposalAddr)
	if err != nil {
		return err
	}
	if derived != proposalTxAddr {
		return newError(CodeIncorrectProposalTransactionAddress, "proposal transaction address does not match derivation")
	}
	return nil
}

// BeginVoting moves a proposal from Draft to Voting, starting its voting
// window. Author-gated.
func (e *Engine) BeginVoting(signer bool, caller, proposalAddr address.Address) error {
	proposal, err := e.requireAuthor(signer, caller, proposalAddr)
	if err != nil {
		return err
	}
	if proposal.Status != StatusDraft {
		return newError(CodeProposalIsImmutable, "voting may only begin from draft")
	}
	now := e.now()
	proposal.Status = StatusVoting
	proposal.VotingStartTimestamp = &now
	if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
		return err
	}
	e.audit(AuditEventVotingBegan, proposalAddr, caller, "")
	return nil
}

// CancelProposal terminates a proposal from Draft or Voting. Author-gated.
func (e *Engine) CancelProposal(signer bool, caller, proposalAddr address.Address) error {
	proposal, err := e.requireAuthor(signer, caller, proposalAddr)
	if err != nil {
		return err
	}
	if proposal.Status != StatusDraft && proposal.Status != StatusVoting {
		return newError(CodeProposalIsImmutable, "cancellation is only permitted from draft or voting")
	}
	proposal.Status = StatusCancelled
	if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
		return err
	}
	e.audit(AuditEventProposalCancelled, proposalAddr, caller, "")
	return nil
}

// evaluateTimers applies the timer-expiry transitions in cooldown-first
// order. It mutates proposal in place and reports whether a transition
// fired; callers that see true must persist the proposal and stop without
// recording a vote.
func evaluateTimers(p *Proposal, now uint64) bool {
	if p.CooldownTimestamp != nil {
		if now >= *p.CooldownTimestamp+p.GovernanceConfig.CooldownPeriodSeconds {
			p.Status = StatusAccepted
			return true
		}
		return false
	}
	if p.VotingStartTimestamp != nil && now >= *p.VotingStartTimestamp+p.GovernanceConfig.VotingPeriodSeconds {
		p.Status = StatusRejected
		return true
	}
	return false
}

// voteContext loads and validates the shared preamble of Vote and
// SwitchVote: signer, stake ownership, stake config agreement, and
// voting-stage status, returning the live stake weight to apply.
type voteContext struct {
	proposal    Proposal
	stakeRecord stakeoracle.StakeRecord
	totalStake  uint64
}

func (e *Engine) voteContext(signer bool, voter, stakeAddr, stakeConfigAddr, proposalAddr address.Address) (voteContext, error) {
	if !signer {
		return voteContext{}, newError(CodeMissingRequiredSignature, "vote requires a signature")
	}
	stakeRecord, err := e.Stake.LoadStakeRecord(stakeAddr)
	if err != nil {
		return voteContext{}, wrapStakeOracleErr(err)
	}
	if stakeRecord.Authority != voter {
		return voteContext{}, newError(CodeValidatorStakeAccountMismatch, "caller does not own the provided stake record")
	}
	proposal, err := e.Store.LoadProposal(proposalAddr)
	if err != nil {
		return voteContext{}, err
	}
	if stakeConfigAddr != proposal.GovernanceConfig.StakeConfigAddress {
		return voteContext{}, newError(CodeStakeConfigMismatch, "stake config does not match the proposal's snapshot")
	}
	if stakeRecord.StakeConfig != stakeConfigAddr {
		return voteContext{}, newError(CodeStakeConfigMismatch, "stake record does not belong to this stake config")
	}
	stakeConfig, err := e.Stake.LoadStakeConfig(stakeConfigAddr)
	if err != nil {
		return voteContext{}, wrapStakeOracleErr(err)
	}
	return voteContext{proposal: proposal, stakeRecord: stakeRecord, totalStake: stakeConfig.TotalDelegatedStake}, nil
}

// Vote casts a first-time ballot for voter against proposalAddr. Returns
// the created ProposalVote, or a zero-value vote with a nil error if a
// timer-expiry transition fired instead of recording a vote.
func (e *Engine) Vote(signer bool, voter, stakeAddr, stakeConfigAddr, proposalVoteAddr, proposalAddr address.Address, election Election) (ProposalVote, error) {
	if !election.valid() {
		return ProposalVote{}, newError(CodeInvalidAccountData, "unknown election")
	}
	ctx, err := e.voteContext(signer, voter, stakeAddr, stakeConfigAddr, proposalAddr)
	if err != nil {
		return ProposalVote{}, err
	}
	proposal := ctx.proposal
	if proposal.Status != StatusVoting {
		return ProposalVote{}, newError(CodeProposalNotInVotingStage, "proposal is not accepting votes")
	}
	now := e.now()
	if evaluateTimers(&proposal, now) {
		if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
			return ProposalVote{}, err
		}
		e.audit(AuditEventStatusChanged, proposalAddr, voter, proposal.Status.String())
		return ProposalVote{}, nil
	}

	derivedVote, bump, err := address.ProposalVote(e.ProgramID, stakeAddr, proposalAddr)
	if err != nil {
		return ProposalVote{}, err
	}
	if derivedVote != proposalVoteAddr {
		return ProposalVote{}, newError(CodeIncorrectProposalVoteAddress, "proposal vote address does not match derivation")
	}

	stake := ctx.stakeRecord.Amount
	if err := applyVoteDelta(&proposal, election, stake, ctx.totalStake, now); err != nil {
		return ProposalVote{}, err
	}
	vote := ProposalVote{Proposal: proposalAddr, Voter: voter, Stake: stake, Election: election, Bump: bump}
	if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
		return ProposalVote{}, err
	}
	if err := e.Store.SaveProposalVote(proposalVoteAddr, vote, true); err != nil {
		return ProposalVote{}, err
	}
	e.audit(AuditEventVoteCast, proposalAddr, voter, election.String())
	return vote, nil
}

// SwitchVote changes an existing voter's election, using the voter's
// current stake weight (which may differ from the weight recorded at the
// original Vote) while preserving tally conservation: the old bucket is
// debited before the new one is credited.
func (e *Engine) SwitchVote(signer bool, voter, stakeAddr, stakeConfigAddr, proposalVoteAddr, proposalAddr address.Address, newElection Election) (ProposalVote, error) {
	if !newElection.valid() {
		return ProposalVote{}, newError(CodeInvalidAccountData, "unknown election")
	}
	ctx, err := e.voteContext(signer, voter, stakeAddr, stakeConfigAddr, proposalAddr)
	if err != nil {
		return ProposalVote{}, err
	}
	proposal := ctx.proposal
	if proposal.Status != StatusVoting {
		return ProposalVote{}, newError(CodeProposalNotInVotingStage, "proposal is not accepting votes")
	}
	now := e.now()
	if evaluateTimers(&proposal, now) {
		if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
			return ProposalVote{}, err
		}
		e.audit(AuditEventStatusChanged, proposalAddr, voter, proposal.Status.String())
		return ProposalVote{}, nil
	}

	derivedVote, _, err := address.ProposalVote(e.ProgramID, stakeAddr, proposalAddr)
	if err != nil {
		return ProposalVote{}, err
	}
	if derivedVote != proposalVoteAddr {
		return ProposalVote{}, newError(CodeIncorrectProposalVoteAddress, "proposal vote address does not match derivation")
	}
	existing, ok, err := e.Store.LoadProposalVote(proposalVoteAddr)
	if err != nil {
		return ProposalVote{}, err
	}
	if !ok {
		return ProposalVote{}, newError(CodeUninitializedAccount, "switch vote requires an existing proposal vote record")
	}

	if err := subtractVoteDelta(&proposal, existing.Election, existing.Stake); err != nil {
		return ProposalVote{}, err
	}
	currentStake := ctx.stakeRecord.Amount
	if err := applyVoteDelta(&proposal, newElection, currentStake, ctx.totalStake, now); err != nil {
		return ProposalVote{}, err
	}
	existing.Election = newElection
	existing.Stake = currentStake
	if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
		return ProposalVote{}, err
	}
	if err := e.Store.SaveProposalVote(proposalVoteAddr, existing, false); err != nil {
		return ProposalVote{}, err
	}
	e.audit(AuditEventVoteSwitched, proposalAddr, voter, newElection.String())
	return existing, nil
}
