package governance

// Code identifies a stable error kind surfaced at the request boundary.
// Codes are snake_case strings; no numeric value is assigned to them.
// Clients switch on Code rather than parsing Message.
type Code string

const (
	CodeStakeConfigMismatch                   Code = "stake_config_mismatch"
	CodeIncorrectProposalTransactionAddress   Code = "incorrect_proposal_transaction_address"
	CodeIncorrectProposalVoteAddress          Code = "incorrect_proposal_vote_address"
	CodeIncorrectGovernanceConfigAddress      Code = "incorrect_governance_config_address"
	CodeValidatorStakeAccountMismatch         Code = "validator_stake_account_mismatch"
	CodeProposalIsImmutable                   Code = "proposal_is_immutable"
	CodeProposalNotInVotingStage              Code = "proposal_not_in_voting_stage"
	CodeProposalNotAccepted                   Code = "proposal_not_accepted"
	CodeInvalidTransactionIndex               Code = "invalid_transaction_index"
	CodeInstructionAlreadyExecuted            Code = "instruction_already_executed"
	CodePreviousInstructionHasNotBeenExecuted Code = "previous_instruction_has_not_been_executed"
	CodeMissingRequiredSignature              Code = "missing_required_signature"
	CodeInvalidAccountOwner                   Code = "invalid_account_owner"
	CodeUninitializedAccount                  Code = "uninitialized_account"
	CodeAccountAlreadyInitialized             Code = "account_already_initialized"
	CodeInvalidAccountData                    Code = "invalid_account_data"
	CodeArithmeticOverflow                    Code = "arithmetic_overflow"
	CodeIncorrectAuthority                    Code = "incorrect_authority"
)

// Error surfaces a deterministic request-processing failure to callers.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Is allows errors.Is(err, &governance.Error{Code: ...}) to match by code alone.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok || other == nil {
		return false
	}
	return e.Code == other.Code
}

// ByCode constructs a sentinel usable with errors.Is, carrying no message.
func ByCode(code Code) *Error {
	return &Error{Code: code}
}
