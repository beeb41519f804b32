package governance

import (
	"encoding/binary"

	"stakegov/internal/address"
)

// RequestKind is the one-byte leading tag of every encoded request.
type RequestKind byte

const (
	KindCreateProposal RequestKind = iota
	KindPushInstruction
	KindRemoveInstruction
	KindCancelProposal
	KindBeginVoting
	KindVote
	KindSwitchVote
	KindProcessInstruction
	KindInitializeGovernance
	KindUpdateGovernance
)

// PushInstructionPayload is PushInstruction's decoded body.
type PushInstructionPayload struct {
	ProgramID    address.Address
	AccountMetas []AccountMeta
	Data         []byte
}

// GovernanceParams is the shared decoded body of InitializeGovernance and
// UpdateGovernance.
type GovernanceParams struct {
	CooldownPeriodSeconds       uint64
	ProposalAcceptanceThreshold uint32
	ProposalRejectionThreshold  uint32
	VotingPeriodSeconds         uint64
}

// Request is a decoded, tagged request body. Exactly one payload field is
// populated, selected by Kind.
type Request struct {
	Kind RequestKind

	PushInstruction *PushInstructionPayload
	RemoveIndex     uint32
	Election        Election
	ProcessIndex    uint32
	Governance      *GovernanceParams
}

// DecodeRequest parses the bit-exact, little-endian wire format: a one-byte
// tag followed by packed fields. This is the single source of truth for
// request decoding; cmd/stakegovd's HTTP transport only base64-wraps the
// same bytes for JSON delivery.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < 1 {
		return Request{}, newError(CodeInvalidAccountData, "empty request")
	}
	kind := RequestKind(buf[0])
	body := buf[1:]
	switch kind {
	case KindCreateProposal, KindCancelProposal, KindBeginVoting:
		return Request{Kind: kind}, nil
	case KindPushInstruction:
		payload, err := decodePushInstructionPayload(body)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: kind, PushInstruction: payload}, nil
	case KindRemoveInstruction:
		index, err := readU32(body, 0)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: kind, RemoveIndex: index}, nil
	case KindVote, KindSwitchVote:
		if len(body) < 1 {
			return Request{}, newError(CodeInvalidAccountData, "vote payload truncated")
		}
		election := Election(body[0])
		if !election.valid() {
			return Request{}, newError(CodeInvalidAccountData, "unknown election tag")
		}
		return Request{Kind: kind, Election: election}, nil
	case KindProcessInstruction:
		index, err := readU32(body, 0)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: kind, ProcessIndex: index}, nil
	case KindInitializeGovernance, KindUpdateGovernance:
		params, err := decodeGovernanceParams(body)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: kind, Governance: params}, nil
	default:
		return Request{}, newError(CodeInvalidAccountData, "unknown request tag")
	}
}

func readU32(buf []byte, off int) (uint32, error) {
	if len(buf) < off+4 {
		return 0, newError(CodeInvalidAccountData, "request truncated reading u32")
	}
	return binary.LittleEndian.Uint32(buf[off:]), nil
}

func readU64(buf []byte, off int) (uint64, error) {
	if len(buf) < off+8 {
		return 0, newError(CodeInvalidAccountData, "request truncated reading u64")
	}
	return binary.LittleEndian.Uint64(buf[off:]), nil
}

func decodeGovernanceParams(body []byte) (*GovernanceParams, error) {
	if len(body) != 8+4+4+8 {
		return nil, newError(CodeInvalidAccountData, "governance params length mismatch")
	}
	cooldown, _ := readU64(body, 0)
	acceptance, _ := readU32(body, 8)
	rejection, _ := readU32(body, 12)
	voting, _ := readU64(body, 16)
	return &GovernanceParams{
		CooldownPeriodSeconds:       cooldown,
		ProposalAcceptanceThreshold: acceptance,
		ProposalRejectionThreshold:  rejection,
		VotingPeriodSeconds:         voting,
	}, nil
}

func decodePushInstructionPayload(body []byte) (*PushInstructionPayload, error) {
	if len(body) < address.Size+4 {
		return nil, newError(CodeInvalidAccountData, "push instruction payload truncated")
	}
	programID, err := address.FromBytes(body[:address.Size])
	if err != nil {
		return nil, newError(CodeInvalidAccountData, err.Error())
	}
	off := address.Size
	metaCount, err := readU32(body, off)
	if err != nil {
		return nil, err
	}
	off += 4
	metas := make([]AccountMeta, 0, metaCount)
	for i := uint32(0); i < metaCount; i++ {
		if len(body) < off+accountMetaLen {
			return nil, newError(CodeInvalidAccountData, "push instruction metas truncated")
		}
		key, err := address.FromBytes(body[off : off+address.Size])
		if err != nil {
			return nil, newError(CodeInvalidAccountData, err.Error())
		}
		off += address.Size
		meta := AccountMeta{Key: key, IsSigner: body[off] != 0}
		off++
		meta.IsWritable = body[off] != 0
		off++
		metas = append(metas, meta)
	}
	dataLen, err := readU32(body, off)
	if err != nil {
		return nil, err
	}
	off += 4
	if len(body) < off+int(dataLen) {
		return nil, newError(CodeInvalidAccountData, "push instruction data truncated")
	}
	data := append([]byte(nil), body[off:off+int(dataLen)]...)
	return &PushInstructionPayload{ProgramID: programID, AccountMetas: metas, Data: data}, nil
}

// EncodeVote and the other Encode* helpers produce the wire bytes
// cmd/stakegov-cli sends to the daemon; they are the exact inverse of
// DecodeRequest's corresponding branch.

func EncodeCreateProposal() []byte { return []byte{byte(KindCreateProposal)} }
func EncodeCancelProposal() []byte { return []byte{byte(KindCancelProposal)} }
func EncodeBeginVoting() []byte    { return []byte{byte(KindBeginVoting)} }

func EncodeVote(election Election) []byte {
	return []byte{byte(KindVote), byte(election)}
}

func EncodeSwitchVote(election Election) []byte {
	return []byte{byte(KindSwitchVote), byte(election)}
}

func EncodeRemoveInstruction(index uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(KindRemoveInstruction)
	binary.LittleEndian.PutUint32(buf[1:], index)
	return buf
}

func EncodeProcessInstruction(index uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(KindProcessInstruction)
	binary.LittleEndian.PutUint32(buf[1:], index)
	return buf
}

func EncodeGovernanceParams(kind RequestKind, p GovernanceParams) []byte {
	buf := make([]byte, 1+8+4+4+8)
	buf[0] = byte(kind)
	binary.LittleEndian.PutUint64(buf[1:], p.CooldownPeriodSeconds)
	binary.LittleEndian.PutUint32(buf[9:], p.ProposalAcceptanceThreshold)
	binary.LittleEndian.PutUint32(buf[13:], p.ProposalRejectionThreshold)
	binary.LittleEndian.PutUint64(buf[17:], p.VotingPeriodSeconds)
	return buf
}

func EncodePushInstruction(p PushInstructionPayload) []byte {
	size := 1 + address.Size + 4 + len(p.AccountMetas)*accountMetaLen + 4 + len(p.Data)
	buf := make([]byte, size)
	buf[0] = byte(KindPushInstruction)
	off := 1
	copy(buf[off:], p.ProgramID.Bytes())
	off += address.Size
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.AccountMetas)))
	off += 4
	for _, meta := range p.AccountMetas {
		copy(buf[off:], meta.Key.Bytes())
		off += address.Size
		buf[off] = boolByte(meta.IsSigner)
		off++
		buf[off] = boolByte(meta.IsWritable)
		off++
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Data)))
	off += 4
	copy(buf[off:], p.Data)
	return buf
}
