package governance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stakegov/internal/address"
	"stakegov/internal/governance"
	"stakegov/internal/runtime"
	"stakegov/internal/stakeoracle"
	"stakegov/storage"
)

const testProgramIDSeed = "11111111111111111111111111111111"

func testAddr(t *testing.T, b byte) address.Address {
	t.Helper()
	buf := make([]byte, address.Size)
	for i := range buf {
		buf[i] = b
	}
	a, err := address.FromBytes(buf)
	require.NoError(t, err)
	return a
}

type mutableClock struct{ at time.Time }

func (c *mutableClock) Now() time.Time { return c.at }

type harness struct {
	t         *testing.T
	programID address.Address
	engine    *governance.Engine
	stake     *stakeoracle.MemReader
	clock     *mutableClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	seed := []byte(testProgramIDSeed)
	programID, err := address.FromBytes(seed[:address.Size])
	require.NoError(t, err)

	store := governance.NewStore(storage.NewMemDB())
	stake := stakeoracle.NewMemReader()
	clock := &mutableClock{at: time.Unix(1_000_000, 0)}
	dispatch := runtime.NewDispatch()
	engine := governance.NewEngine(programID, store, stake, clock, dispatch, nil, nil)

	return &harness{t: t, programID: programID, engine: engine, stake: stake, clock: clock}
}

func (h *harness) advance(seconds int64) {
	h.clock.at = h.clock.at.Add(time.Duration(seconds) * time.Second)
}

func (h *harness) setupPool(totalStake, cooldown, voting uint64, acceptance, rejection uint32) (stakeConfigAddr, governanceAddr address.Address) {
	h.t.Helper()
	stakeConfigAddr = testAddr(h.t, 0x10)
	h.stake.PutStakeConfig(stakeoracle.StakeConfig{Address: stakeConfigAddr, TotalDelegatedStake: totalStake})

	governanceAddr, _, err := address.Governance(h.programID, stakeConfigAddr)
	require.NoError(h.t, err)
	_, err = h.engine.InitializeGovernance(true, governanceAddr, stakeConfigAddr, cooldown, voting, acceptance, rejection)
	require.NoError(h.t, err)
	return stakeConfigAddr, governanceAddr
}

func (h *harness) putStaker(id byte, stakeConfigAddr address.Address, amount uint64) (authority, stakeAddr address.Address) {
	h.t.Helper()
	authority = testAddr(h.t, id)
	stakeAddr = testAddr(h.t, id+0x40)
	h.stake.PutStakeRecord(stakeoracle.StakeRecord{
		Address:     stakeAddr,
		Authority:   authority,
		StakeConfig: stakeConfigAddr,
		Amount:      amount,
	})
	return authority, stakeAddr
}

func (h *harness) createProposal(author, stakeAddr, stakeConfigAddr, governanceAddr address.Address, proposalSeed byte) (proposalAddr, proposalTxAddr address.Address) {
	h.t.Helper()
	proposalAddr = testAddr(h.t, proposalSeed)
	proposalTxAddr, bump, err := address.ProposalTransaction(h.programID, proposalAddr)
	require.NoError(h.t, err)
	_, err = h.engine.CreateProposal(true, author, stakeAddr, governanceAddr, proposalAddr, proposalTxAddr, bump)
	require.NoError(h.t, err)
	return proposalAddr, proposalTxAddr
}

func (h *harness) beginVoting(author, proposalAddr address.Address) {
	h.t.Helper()
	require.NoError(h.t, h.engine.BeginVoting(true, author, proposalAddr))
}

func (h *harness) vote(voter, stakeAddr, stakeConfigAddr, proposalAddr address.Address, election governance.Election) governance.ProposalVote {
	h.t.Helper()
	voteAddr, _, err := address.ProposalVote(h.programID, stakeAddr, proposalAddr)
	require.NoError(h.t, err)
	v, err := h.engine.Vote(true, voter, stakeAddr, stakeConfigAddr, voteAddr, proposalAddr, election)
	require.NoError(h.t, err)
	return v
}

// scenario: a single voter clears the acceptance threshold, a queued
// instruction is attached while still in draft, and once the cooldown
// window elapses the next vote attempt observes the Accepted transition.
func TestHappyPathAcceptance(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 10, 3_600, 600_000_000, 400_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 700)

	proposalAddr, proposalTxAddr := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x20)

	downstreamProgram := testAddr(t, 0x99)
	err := h.engine.PushInstruction(true, author, proposalAddr, proposalTxAddr, downstreamProgram, nil, []byte("payload"))
	require.NoError(t, err)

	h.beginVoting(author, proposalAddr)
	h.vote(author, authorStake, stakeConfigAddr, proposalAddr, governance.ElectionFor)

	proposal, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusVoting, proposal.Status)
	require.NotNil(t, proposal.CooldownTimestamp)

	h.advance(11)
	// Re-voting with a second, tiny staker after cooldown started should
	// trip the timer transition to Accepted rather than record a vote.
	_, secondStake := h.putStaker(0x02, stakeConfigAddr, 10)
	second := testAddr(t, 0x02)
	v, err := h.engine.Vote(true, second, secondStake, stakeConfigAddr, mustVoteAddr(t, h.programID, secondStake, proposalAddr), proposalAddr, governance.ElectionAgainst)
	require.NoError(t, err)
	require.Equal(t, governance.ProposalVote{}, v)

	proposal, err = h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusAccepted, proposal.Status)
}

func mustVoteAddr(t *testing.T, programID, stakeAddr, proposalAddr address.Address) address.Address {
	t.Helper()
	a, _, err := address.ProposalVote(programID, stakeAddr, proposalAddr)
	require.NoError(t, err)
	return a
}

// scenario: stake against a proposal exceeds the rejection threshold before
// the voting window elapses; rejection fires immediately, with no cooldown
// started, and is terminal.
func TestRejectionByThresholdDuringVoting(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 100, 3_600, 900_000_000, 300_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 50)
	proposalAddr, _ := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x21)
	h.beginVoting(author, proposalAddr)

	_, opposerStake := h.putStaker(0x03, stakeConfigAddr, 350)
	opposer := testAddr(t, 0x03)
	h.vote(opposer, opposerStake, stakeConfigAddr, proposalAddr, governance.ElectionAgainst)

	proposal, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusRejected, proposal.Status)
	require.True(t, proposal.Status.Terminal())
}

// scenario: nobody clears either threshold before the voting window expires;
// the next vote attempt observes the timer transition to Rejected.
func TestRejectionByVotingWindowExpiry(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 100, 50, 900_000_000, 900_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 10)
	proposalAddr, _ := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x22)
	h.beginVoting(author, proposalAddr)

	h.advance(51)
	v := h.vote(author, authorStake, stakeConfigAddr, proposalAddr, governance.ElectionFor)
	require.Equal(t, governance.ProposalVote{}, v)

	proposal, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusRejected, proposal.Status)
}

// scenario: a voter switches sides; the tally for the old election is
// debited by the originally recorded weight and the new election is
// credited with the voter's current weight, conserving total tallied stake
// when the weight is unchanged.
func TestSwitchVoteConservesTally(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 100, 3_600, 950_000_000, 950_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 5)
	proposalAddr, _ := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x23)
	h.beginVoting(author, proposalAddr)

	voter, voterStake := h.putStaker(0x04, stakeConfigAddr, 200)
	h.vote(voter, voterStake, stakeConfigAddr, proposalAddr, governance.ElectionFor)

	before, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(200), before.StakeFor)
	require.Equal(t, uint64(0), before.StakeAgainst)

	voteAddr := mustVoteAddr(t, h.programID, voterStake, proposalAddr)
	_, err = h.engine.SwitchVote(true, voter, voterStake, stakeConfigAddr, voteAddr, proposalAddr, governance.ElectionAgainst)
	require.NoError(t, err)

	after, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), after.StakeFor)
	require.Equal(t, uint64(200), after.StakeAgainst)
	require.Equal(t, before.StakeFor+before.StakeAgainst, after.StakeFor+after.StakeAgainst)
}

// scenario: cooldown takes precedence over a voting-window expiry that
// would otherwise fire first; once a cooldown timestamp is set, the
// voting-window branch of evaluateTimers is never consulted again.
func TestCooldownSupersedesVotingWindow(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 1_000, 20, 500_000_000, 900_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 600)
	proposalAddr, _ := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x24)
	h.beginVoting(author, proposalAddr)
	h.vote(author, authorStake, stakeConfigAddr, proposalAddr, governance.ElectionFor)

	proposal, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusVoting, proposal.Status)
	require.NotNil(t, proposal.CooldownTimestamp)

	h.advance(21)
	_, laterStake := h.putStaker(0x05, stakeConfigAddr, 1)
	later := testAddr(t, 0x05)
	v, err := h.engine.Vote(true, later, laterStake, stakeConfigAddr, mustVoteAddr(t, h.programID, laterStake, proposalAddr), proposalAddr, governance.ElectionFor)
	require.NoError(t, err)
	require.Equal(t, governance.ElectionFor, v.Election, "voting window expiry must not override an active cooldown, so the vote is recorded normally")

	proposal, err = h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusVoting, proposal.Status, "cooldown has not elapsed yet, voting window expiry must not apply")
}

// scenario: an accepted proposal's instructions dispatch in order and at
// most once, and the last instruction transitions the proposal to Processed.
func TestOrderedDispatchAndProcessedTransition(t *testing.T) {
	h := newHarness(t)
	stakeConfigAddr, governanceAddr := h.setupPool(1_000, 5, 3_600, 500_000_000, 500_000_000)
	author, authorStake := h.putStaker(0x01, stakeConfigAddr, 800)
	proposalAddr, proposalTxAddr := h.createProposal(author, authorStake, stakeConfigAddr, governanceAddr, 0x25)

	var order []int
	downstream := testAddr(t, 0x88)
	dispatch := runtime.NewDispatch()
	dispatch.Register(downstream, func(ctx context.Context, metas []runtime.AccountMeta, data []byte, signer address.Address) error {
		order = append(order, int(data[0]))
		return nil
	})

	store := h.engine.Store
	engine := governance.NewEngine(h.programID, store, h.stake, h.clock, dispatch, nil, nil)
	h.engine = engine

	require.NoError(t, h.engine.PushInstruction(true, author, proposalAddr, proposalTxAddr, downstream, nil, []byte{0}))
	require.NoError(t, h.engine.PushInstruction(true, author, proposalAddr, proposalTxAddr, downstream, nil, []byte{1}))

	h.beginVoting(author, proposalAddr)
	h.vote(author, authorStake, stakeConfigAddr, proposalAddr, governance.ElectionFor)
	h.advance(6)

	// Trip the cooldown-expiry transition via a vote attempt from a fresh
	// staker before dispatching.
	_, nudgeStake := h.putStaker(0x06, stakeConfigAddr, 1)
	nudge := testAddr(t, 0x06)
	_, err := h.engine.Vote(true, nudge, nudgeStake, stakeConfigAddr, mustVoteAddr(t, h.programID, nudgeStake, proposalAddr), proposalAddr, governance.ElectionFor)
	require.NoError(t, err)

	proposal, err := h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusAccepted, proposal.Status)

	ctx := context.Background()
	require.Error(t, h.engine.ProcessInstruction(ctx, proposalAddr, proposalTxAddr, 1, nil), "instruction 1 cannot run before instruction 0")

	require.NoError(t, h.engine.ProcessInstruction(ctx, proposalAddr, proposalTxAddr, 0, nil))
	require.Error(t, h.engine.ProcessInstruction(ctx, proposalAddr, proposalTxAddr, 0, nil), "instruction 0 already executed")
	require.NoError(t, h.engine.ProcessInstruction(ctx, proposalAddr, proposalTxAddr, 1, nil))

	require.Equal(t, []int{0, 1}, order)

	proposal, err = h.engine.Store.LoadProposal(proposalAddr)
	require.NoError(t, err)
	require.Equal(t, governance.StatusProcessed, proposal.Status)
}
