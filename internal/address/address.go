// Package address derives program-owned addresses from logical keys,
// mirroring Solana's find_program_address bump-seed search without any
// elliptic-curve "off-curve" requirement: a candidate is accepted as soon
// as it is produced, so in practice the search always terminates at the
// highest bump. The loop is kept to preserve the same search order and the
// same stored (address, bump) shape real PDA derivation uses.
package address

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/btcsuite/btcutil/bech32"
	"lukechampine.com/blake3"
)

// bech32HRP is the human-readable prefix cmd/stakegov-cli uses when an
// operator wants to type or display an address without counting hex
// digits, the same convention the teacher's crypto.Address uses for
// wallet addresses.
const bech32HRP = "stkgov"

// Size is the length in bytes of a derived address.
const Size = 32

// Address is a program-derived address: the output of a bump-seed hash,
// not a public key and not spendable by any private key.
type Address [Size]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string { return hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

// MarshalJSON renders the address as hex, the shape cmd/stakegovd's JSON
// API and cmd/stakegov-cli both use on the wire.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the hex form MarshalJSON produces.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	decoded, err := FromBytes(b)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Bech32 renders the address in the human-readable form cmd/stakegov-cli
// accepts and displays; the wire format everything else in this repository
// uses remains the hex form produced by String.
func (a Address) Bech32() string {
	conv, err := bech32.ConvertBits(a.Bytes(), 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(bech32HRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// ParseBech32 parses the human-readable form Bech32 produces.
func ParseBech32(s string) (Address, error) {
	hrp, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, err
	}
	if hrp != bech32HRP {
		return Address{}, errors.New("address: unexpected bech32 human-readable part")
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, err
	}
	return FromBytes(conv)
}

// FromBytes builds an Address from a 32-byte slice.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, errors.New("address: input must be 32 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// ErrNoAddressFound is returned if no bump in [0, 255] yields a usable
// candidate. In this hash-based model it is effectively unreachable, but
// the search is written defensively to match the real PDA search contract.
var ErrNoAddressFound = errors.New("address: no derivable address found for any bump seed")

const maxBump = 255

// Derive searches bumps from 255 down to 0, returning the first candidate
// hash of programID and seeds that is not the zero address. The returned
// bump must be persisted by the caller so the address can be reconstructed
// later as a signer without re-searching.
func Derive(programID Address, seeds ...[]byte) (Address, uint8, error) {
	for bump := maxBump; bump >= 0; bump-- {
		candidate := hashSeeds(programID, uint8(bump), seeds)
		if !candidate.IsZero() {
			return candidate, uint8(bump), nil
		}
	}
	return Address{}, 0, ErrNoAddressFound
}

// DeriveWithBump reconstructs the address for a known bump without
// searching, for signer-seed reconstruction.
func DeriveWithBump(programID Address, bump uint8, seeds ...[]byte) Address {
	return hashSeeds(programID, bump, seeds)
}

func hashSeeds(programID Address, bump uint8, seeds [][]byte) Address {
	h := blake3.New(Size, nil)
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

var (
	seedGovernance          = []byte("governance")
	seedProposalTransaction = []byte("proposal-transaction")
	seedProposalVote        = []byte("proposal-vote")
	seedTreasury            = []byte("treasury")
)

// Governance derives the singleton GovernanceConfig address for a stake pool.
func Governance(programID, stakeConfig Address) (Address, uint8, error) {
	return Derive(programID, seedGovernance, stakeConfig.Bytes())
}

// ProposalTransaction derives the instruction-list address owned by a proposal.
func ProposalTransaction(programID, proposal Address) (Address, uint8, error) {
	return Derive(programID, seedProposalTransaction, proposal.Bytes())
}

// ProposalVote derives the vote-record address for a (stake record, proposal) pair.
// Including the proposal key in the seed set makes vote records structurally
// scoped to a single proposal: the same stake record cannot be replayed
// against a different proposal under this address.
func ProposalVote(programID, stakeRecord, proposal Address) (Address, uint8, error) {
	return Derive(programID, seedProposalVote, stakeRecord.Bytes(), proposal.Bytes())
}

// Treasury derives the signing authority the Dispatcher uses for bundled instructions.
func Treasury(programID, stakeConfig Address) (Address, uint8, error) {
	return Derive(programID, seedTreasury, stakeConfig.Bytes())
}

// Signer reconstructs a program-derived address's seeds so the runtime can
// be asked to sign on the program's behalf, without re-searching for the bump.
type Signer struct {
	ProgramID Address
	Seeds     [][]byte
	Bump      uint8
}

// Address recomputes the address this Signer authorizes for.
func (s Signer) Address() Address {
	return DeriveWithBump(s.ProgramID, s.Bump, s.Seeds...)
}

// TreasurySigner builds the signer capability for a governance pool's Treasury.
func TreasurySigner(programID, stakeConfig Address, bump uint8) Signer {
	return Signer{ProgramID: programID, Seeds: [][]byte{seedTreasury, stakeConfig.Bytes()}, Bump: bump}
}

// GovernanceSigner builds the signer capability for a governance pool's config account.
func GovernanceSigner(programID, stakeConfig Address, bump uint8) Signer {
	return Signer{ProgramID: programID, Seeds: [][]byte{seedGovernance, stakeConfig.Bytes()}, Bump: bump}
}
