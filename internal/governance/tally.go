package governance

// applyVoteDelta folds stake into the bucket for election and evaluates the
// threshold side effect for that bucket. now stamps a freshly started
// cooldown; it has no effect once a cooldown is already running.
func applyVoteDelta(p *Proposal, election Election, stake, totalStake, now uint64) error {
	switch election {
	case ElectionFor:
		sum, err := checkedAdd(p.StakeFor, stake)
		if err != nil {
			return err
		}
		p.StakeFor = sum
		meets, err := MeetsThreshold(p.StakeFor, totalStake, p.GovernanceConfig.ProposalAcceptanceThreshold)
		if err != nil {
			return err
		}
		if meets && p.CooldownTimestamp == nil {
			t := now
			p.CooldownTimestamp = &t
		}
	case ElectionAgainst:
		sum, err := checkedAdd(p.StakeAgainst, stake)
		if err != nil {
			return err
		}
		p.StakeAgainst = sum
		meets, err := MeetsThreshold(p.StakeAgainst, totalStake, p.GovernanceConfig.ProposalRejectionThreshold)
		if err != nil {
			return err
		}
		if meets {
			// Rejection overrides any cooldown already in progress.
			p.Status = StatusRejected
		}
	case ElectionDidNotVote:
		sum, err := checkedAdd(p.StakeAbstained, stake)
		if err != nil {
			return err
		}
		p.StakeAbstained = sum
	default:
		return newError(CodeInvalidAccountData, "unknown election")
	}
	return nil
}

// subtractVoteDelta undoes a previously-recorded stake amount from the
// bucket of election, used by SwitchVote before re-applying the new vote.
func subtractVoteDelta(p *Proposal, election Election, stake uint64) error {
	switch election {
	case ElectionFor:
		diff, err := checkedSub(p.StakeFor, stake)
		if err != nil {
			return err
		}
		p.StakeFor = diff
	case ElectionAgainst:
		diff, err := checkedSub(p.StakeAgainst, stake)
		if err != nil {
			return err
		}
		p.StakeAgainst = diff
	case ElectionDidNotVote:
		diff, err := checkedSub(p.StakeAbstained, stake)
		if err != nil {
			return err
		}
		p.StakeAbstained = diff
	default:
		return newError(CodeInvalidAccountData, "unknown election")
	}
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, newError(CodeArithmeticOverflow, "tally addition overflowed")
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, newError(CodeArithmeticOverflow, "tally subtraction underflowed")
	}
	return a - b, nil
}
