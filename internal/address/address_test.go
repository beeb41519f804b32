package address_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stakegov/internal/address"
)

func programID(t *testing.T) address.Address {
	t.Helper()
	a, err := address.FromBytes([]byte("11111111111111111111111111111111"[:32]))
	require.NoError(t, err)
	return a
}

func TestDeriveIsDeterministic(t *testing.T) {
	prog := programID(t)
	stakeConfig := address.Address{1, 2, 3}

	addr1, bump1, err := address.Governance(prog, stakeConfig)
	require.NoError(t, err)
	addr2, bump2, err := address.Governance(prog, stakeConfig)
	require.NoError(t, err)

	require.Equal(t, addr1, addr2)
	require.Equal(t, bump1, bump2)
	require.Equal(t, uint8(255), bump1)
}

func TestDeriveWithBumpReconstructsAddress(t *testing.T) {
	prog := programID(t)
	stakeConfig := address.Address{9, 9, 9}

	addr, bump, err := address.Treasury(prog, stakeConfig)
	require.NoError(t, err)

	signer := address.TreasurySigner(prog, stakeConfig, bump)
	require.Equal(t, addr, signer.Address())
}

func TestProposalVoteAddressIsProposalScoped(t *testing.T) {
	prog := programID(t)
	stakeRecord := address.Address{4, 4, 4}
	proposalX := address.Address{5, 5, 5}
	proposalY := address.Address{6, 6, 6}

	voteX, _, err := address.ProposalVote(prog, stakeRecord, proposalX)
	require.NoError(t, err)
	voteY, _, err := address.ProposalVote(prog, stakeRecord, proposalY)
	require.NoError(t, err)

	require.NotEqual(t, voteX, voteY)
}

func TestBech32RoundTrips(t *testing.T) {
	prog := programID(t)
	addr, _, err := address.Governance(prog, address.Address{1, 1, 1})
	require.NoError(t, err)

	encoded := addr.Bech32()
	require.True(t, strings.HasPrefix(encoded, "stkgov1"))

	decoded, err := address.ParseBech32(encoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
}

func TestParseBech32RejectsWrongPrefix(t *testing.T) {
	_, err := address.ParseBech32("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq")
	require.Error(t, err)
}

func TestJSONRoundTrips(t *testing.T) {
	addr := address.Address{2, 4, 6, 8}

	data, err := json.Marshal(addr)
	require.NoError(t, err)
	require.Equal(t, `"`+addr.String()+`"`, string(data))

	var decoded address.Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, addr, decoded)
}

func TestDifferentSeedsYieldDifferentAddresses(t *testing.T) {
	prog := programID(t)
	stakeConfig := address.Address{7, 7, 7}
	proposal := address.Address{8, 8, 8}

	gov, _, err := address.Governance(prog, stakeConfig)
	require.NoError(t, err)
	treasury, _, err := address.Treasury(prog, stakeConfig)
	require.NoError(t, err)
	proposalTx, _, err := address.ProposalTransaction(prog, proposal)
	require.NoError(t, err)

	require.NotEqual(t, gov, treasury)
	require.NotEqual(t, gov, proposalTx)
	require.NotEqual(t, treasury, proposalTx)
}
