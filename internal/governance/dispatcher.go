package governance

import (
	"context"

	"stakegov/internal/address"
	"stakegov/internal/runtime"
)

// ProcessInstruction executes the instruction at index under the Treasury
// signer, in order and at most once. tailAccounts is forwarded verbatim to
// the host runtime as the downstream instruction's account list; this
// program does not interpret it.
//
// Deviation from the observed reference source: once the instruction at
// the final index executes successfully, Proposal.Status transitions from
// Accepted to Processed. The reference leaves status at Accepted forever;
// this implementation prefers assigning the terminal status the taxonomy
// defines for it.
func (e *Engine) ProcessInstruction(ctx context.Context, proposalAddr, proposalTxAddr address.Address, index uint32, tailAccounts []runtime.AccountMeta) error {
	proposal, err := e.Store.LoadProposal(proposalAddr)
	if err != nil {
		return err
	}
	if proposal.Status != StatusAccepted {
		return newError(CodeProposalNotAccepted, "proposal is not accepted")
	}
	if err := e.checkProposalTransactionAddress(proposalAddr, proposalTxAddr); err != nil {
		return err
	}
	tx, err := e.Store.LoadProposalTransaction(proposalTxAddr)
	if err != nil {
		return err
	}
	if int(index) >= len(tx.Instructions) {
		return newError(CodeInvalidTransactionIndex, "instruction index out of range")
	}
	if tx.Instructions[index].Executed {
		return newError(CodeInstructionAlreadyExecuted, "instruction already executed")
	}
	if index > 0 && !tx.Instructions[index-1].Executed {
		return newError(CodePreviousInstructionHasNotBeenExecuted, "instructions execute in order")
	}

	treasury := address.TreasurySigner(e.ProgramID, proposal.GovernanceConfig.StakeConfigAddress, treasuryBump(e.ProgramID, proposal.GovernanceConfig.StakeConfigAddress))
	instruction := tx.Instructions[index]
	// tailAccounts, not instruction.AccountMetas, are forwarded: the caller
	// resupplies account metadata at execution time, and the persisted metas
	// stay read-model-only.
	if err := e.Invoker.Invoke(ctx, instruction.ProgramID, tailAccounts, instruction.Data, treasury); err != nil {
		return err
	}

	tx.Instructions[index].Executed = true
	if err := e.Store.SaveProposalTransaction(proposalTxAddr, tx, false); err != nil {
		return err
	}

	if int(index) == len(tx.Instructions)-1 {
		proposal.Status = StatusProcessed
		if err := e.Store.SaveProposal(proposalAddr, proposal, false); err != nil {
			return err
		}
	}
	e.audit(AuditEventInstructionProcessed, proposalAddr, treasury.Address(), "")
	return nil
}

func treasuryBump(programID, stakeConfig address.Address) uint8 {
	_, bump, err := address.Treasury(programID, stakeConfig)
	if err != nil {
		// Derive always succeeds for a concrete input in this hash-based
		// model; a failure here indicates a broken address package, not a
		// request-time condition.
		panic(err)
	}
	return bump
}
