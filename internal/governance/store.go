package governance

import (
	"encoding/binary"

	"stakegov/internal/address"
	"stakegov/storage"
)

// discriminator tags the first byte of every fixed-size persisted record,
// standing in for the owner check the host runtime would otherwise perform:
// since every record in this store belongs to the same program, a
// discriminator mismatch is the only signal left that an address was
// derived for one record kind but read back as another.
type discriminator byte

const (
	discGovernanceConfig discriminator = 1
	discProposal         discriminator = 2
	discProposalVote     discriminator = 3
)

const (
	governanceConfigFieldsLen = 8 + 8 + 4 + 4 + address.Size + 1 // 57
	governanceConfigRecordLen = 1 + governanceConfigFieldsLen
	proposalRecordLen         = 1 + address.Size + 8 + 1 + 8 + 1 + 8 + 8 + 8 + 8 + 1 + governanceConfigFieldsLen
	proposalVoteRecordLen     = 1 + address.Size + address.Size + 8 + 1 + 1
)

func encodeGovernanceConfigFields(cfg GovernanceConfig) []byte {
	buf := make([]byte, governanceConfigFieldsLen)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], cfg.CooldownPeriodSeconds)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], cfg.VotingPeriodSeconds)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], cfg.ProposalAcceptanceThreshold)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], cfg.ProposalRejectionThreshold)
	off += 4
	copy(buf[off:], cfg.StakeConfigAddress.Bytes())
	off += address.Size
	buf[off] = cfg.Bump
	return buf
}

func decodeGovernanceConfigFields(buf []byte) (GovernanceConfig, error) {
	if len(buf) != governanceConfigFieldsLen {
		return GovernanceConfig{}, newError(CodeInvalidAccountData, "governance config field length mismatch")
	}
	var cfg GovernanceConfig
	off := 0
	cfg.CooldownPeriodSeconds = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	cfg.VotingPeriodSeconds = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	cfg.ProposalAcceptanceThreshold = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	cfg.ProposalRejectionThreshold = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	stakeConfigAddr, err := address.FromBytes(buf[off : off+address.Size])
	if err != nil {
		return GovernanceConfig{}, newError(CodeInvalidAccountData, err.Error())
	}
	cfg.StakeConfigAddress = stakeConfigAddr
	off += address.Size
	cfg.Bump = buf[off]
	return cfg, nil
}

// Store wraps the primary account database with typed, discriminator-checked
// access to governance records. It implements component B (external-state
// readers) for every record kind this program itself owns.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) has(addr address.Address) (bool, error) {
	_, err := s.db.Get(addr.Bytes())
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) LoadGovernanceConfig(addr address.Address) (GovernanceConfig, error) {
	raw, err := s.db.Get(addr.Bytes())
	if err == storage.ErrNotFound {
		return GovernanceConfig{}, newError(CodeUninitializedAccount, "governance config account not initialized")
	}
	if err != nil {
		return GovernanceConfig{}, err
	}
	if len(raw) != governanceConfigRecordLen || discriminator(raw[0]) != discGovernanceConfig {
		return GovernanceConfig{}, newError(CodeInvalidAccountData, "governance config record malformed")
	}
	return decodeGovernanceConfigFields(raw[1:])
}

func (s *Store) SaveGovernanceConfig(addr address.Address, cfg GovernanceConfig, mustNotExist bool) error {
	exists, err := s.has(addr)
	if err != nil {
		return err
	}
	if mustNotExist && exists {
		return newError(CodeAccountAlreadyInitialized, "governance config already initialized")
	}
	buf := append([]byte{byte(discGovernanceConfig)}, encodeGovernanceConfigFields(cfg)...)
	return s.db.Put(addr.Bytes(), buf)
}

func encodeOptionalU64(v *uint64) (flag byte, value uint64) {
	if v == nil {
		return 0, 0
	}
	return 1, *v
}

func decodeOptionalU64(flag byte, value uint64) *uint64 {
	if flag == 0 {
		return nil
	}
	cp := value
	return &cp
}

func encodeProposal(p Proposal) []byte {
	buf := make([]byte, proposalRecordLen)
	buf[0] = byte(discProposal)
	off := 1
	copy(buf[off:], p.Author.Bytes())
	off += address.Size
	binary.LittleEndian.PutUint64(buf[off:], uint64(p.CreationTimestamp))
	off += 8
	flag, val := encodeOptionalU64(p.VotingStartTimestamp)
	buf[off] = flag
	off++
	binary.LittleEndian.PutUint64(buf[off:], val)
	off += 8
	flag, val = encodeOptionalU64(p.CooldownTimestamp)
	buf[off] = flag
	off++
	binary.LittleEndian.PutUint64(buf[off:], val)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.StakeFor)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.StakeAgainst)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.StakeAbstained)
	off += 8
	buf[off] = byte(p.Status)
	off++
	copy(buf[off:], encodeGovernanceConfigFields(p.GovernanceConfig))
	return buf
}

func decodeProposal(buf []byte) (Proposal, error) {
	if len(buf) != proposalRecordLen || discriminator(buf[0]) != discProposal {
		return Proposal{}, newError(CodeInvalidAccountData, "proposal record malformed")
	}
	var p Proposal
	off := 1
	author, err := address.FromBytes(buf[off : off+address.Size])
	if err != nil {
		return Proposal{}, newError(CodeInvalidAccountData, err.Error())
	}
	p.Author = author
	off += address.Size
	p.CreationTimestamp = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	flag := buf[off]
	off++
	val := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	p.VotingStartTimestamp = decodeOptionalU64(flag, val)
	flag = buf[off]
	off++
	val = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	p.CooldownTimestamp = decodeOptionalU64(flag, val)
	p.StakeFor = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	p.StakeAgainst = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	p.StakeAbstained = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	p.Status = ProposalStatus(buf[off])
	off++
	cfg, err := decodeGovernanceConfigFields(buf[off:])
	if err != nil {
		return Proposal{}, err
	}
	p.GovernanceConfig = cfg
	return p, nil
}

func (s *Store) LoadProposal(addr address.Address) (Proposal, error) {
	raw, err := s.db.Get(addr.Bytes())
	if err == storage.ErrNotFound {
		return Proposal{}, newError(CodeUninitializedAccount, "proposal account not initialized")
	}
	if err != nil {
		return Proposal{}, err
	}
	return decodeProposal(raw)
}

func (s *Store) SaveProposal(addr address.Address, p Proposal, mustNotExist bool) error {
	if mustNotExist {
		exists, err := s.has(addr)
		if err != nil {
			return err
		}
		if exists {
			return newError(CodeAccountAlreadyInitialized, "proposal already initialized")
		}
	}
	return s.db.Put(addr.Bytes(), encodeProposal(p))
}

func encodeProposalVote(v ProposalVote) []byte {
	buf := make([]byte, proposalVoteRecordLen)
	buf[0] = byte(discProposalVote)
	off := 1
	copy(buf[off:], v.Proposal.Bytes())
	off += address.Size
	copy(buf[off:], v.Voter.Bytes())
	off += address.Size
	binary.LittleEndian.PutUint64(buf[off:], v.Stake)
	off += 8
	buf[off] = byte(v.Election)
	off++
	buf[off] = v.Bump
	return buf
}

func decodeProposalVote(buf []byte) (ProposalVote, error) {
	if len(buf) != proposalVoteRecordLen || discriminator(buf[0]) != discProposalVote {
		return ProposalVote{}, newError(CodeInvalidAccountData, "proposal vote record malformed")
	}
	var v ProposalVote
	off := 1
	proposal, err := address.FromBytes(buf[off : off+address.Size])
	if err != nil {
		return ProposalVote{}, newError(CodeInvalidAccountData, err.Error())
	}
	v.Proposal = proposal
	off += address.Size
	voter, err := address.FromBytes(buf[off : off+address.Size])
	if err != nil {
		return ProposalVote{}, newError(CodeInvalidAccountData, err.Error())
	}
	v.Voter = voter
	off += address.Size
	v.Stake = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	v.Election = Election(buf[off])
	off++
	v.Bump = buf[off]
	return v, nil
}

func (s *Store) LoadProposalVote(addr address.Address) (ProposalVote, bool, error) {
	raw, err := s.db.Get(addr.Bytes())
	if err == storage.ErrNotFound {
		return ProposalVote{}, false, nil
	}
	if err != nil {
		return ProposalVote{}, false, err
	}
	v, err := decodeProposalVote(raw)
	if err != nil {
		return ProposalVote{}, false, err
	}
	return v, true, nil
}

func (s *Store) SaveProposalVote(addr address.Address, v ProposalVote, mustNotExist bool) error {
	if mustNotExist {
		exists, err := s.has(addr)
		if err != nil {
			return err
		}
		if exists {
			return newError(CodeAccountAlreadyInitialized, "proposal vote already initialized")
		}
	}
	return s.db.Put(addr.Bytes(), encodeProposalVote(v))
}
