package auditstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stakegov/internal/address"
	"stakegov/internal/auditstore"
	"stakegov/internal/governance"
)

func openTestStore(t *testing.T) *auditstore.Store {
	t.Helper()
	// Each test gets its own named in-memory database; the shared-cache DSN
	// that Open defaults to would otherwise leak state between tests in the
	// same process.
	store, err := auditstore.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndListAuditTrailOrdersBySequence(t *testing.T) {
	store := openTestStore(t)

	proposal := address.Address{1}
	actor := address.Address{2}

	store.Append(governance.AuditRecord{
		Sequence: 2, Event: governance.AuditEventVoteCast, Proposal: proposal, Actor: actor,
		Timestamp: time.Now(), Details: "second",
	})
	store.Append(governance.AuditRecord{
		Sequence: 1, Event: governance.AuditEventProposalCreated, Proposal: proposal, Actor: actor,
		Timestamp: time.Now(), Details: "first",
	})

	rows, err := store.ListAuditTrail(proposal.String())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, uint64(1), rows[0].Sequence)
	require.Equal(t, uint64(2), rows[1].Sequence)
}

func TestUpsertSnapshotOverwritesPriorTally(t *testing.T) {
	store := openTestStore(t)

	proposal := address.Address{3}
	author := address.Address{4}

	base := governance.Proposal{
		Author: author,
		Status: governance.StatusVoting,
	}
	require.NoError(t, store.UpsertSnapshot(proposal.String(), base))

	base.StakeFor = 100
	base.Status = governance.StatusAccepted
	require.NoError(t, store.UpsertSnapshot(proposal.String(), base))

	snap, err := store.GetSnapshot(proposal.String())
	require.NoError(t, err)
	require.Equal(t, uint64(100), snap.StakeFor)
	require.Equal(t, governance.StatusAccepted.String(), snap.Status)
}

func TestGetSnapshotMissingProposalErrors(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSnapshot("does-not-exist")
	require.Error(t, err)
}
