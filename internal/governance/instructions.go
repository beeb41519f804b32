package governance

import (
	"encoding/binary"

	"stakegov/internal/address"
	"stakegov/storage"
)

const discProposalTransaction discriminator = 4

const accountMetaLen = address.Size + 1 + 1

// packedSize returns the canonical encoded length of a ProposalTransaction.
// Recomputed before every write so the caller can reallocate the backing
// account to the exact new size on push/remove, mirroring the host's
// realloc-on-write account model even though this store has no fixed
// account-size ceiling to respect.
func (tx ProposalTransaction) packedSize() int {
	size := 1 + address.Size + 1 + 4 // disc + proposal + bump + instruction count
	for _, ins := range tx.Instructions {
		size += address.Size + 4 + len(ins.AccountMetas)*accountMetaLen + 4 + len(ins.Data) + 1
	}
	return size
}

func encodeProposalTransaction(tx ProposalTransaction) []byte {
	buf := make([]byte, tx.packedSize())
	buf[0] = byte(discProposalTransaction)
	off := 1
	copy(buf[off:], tx.Proposal.Bytes())
	off += address.Size
	buf[off] = tx.Bump
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(tx.Instructions)))
	off += 4
	for _, ins := range tx.Instructions {
		copy(buf[off:], ins.ProgramID.Bytes())
		off += address.Size
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(ins.AccountMetas)))
		off += 4
		for _, meta := range ins.AccountMetas {
			copy(buf[off:], meta.Key.Bytes())
			off += address.Size
			buf[off] = boolByte(meta.IsSigner)
			off++
			buf[off] = boolByte(meta.IsWritable)
			off++
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(ins.Data)))
		off += 4
		copy(buf[off:], ins.Data)
		off += len(ins.Data)
		buf[off] = boolByte(ins.Executed)
		off++
	}
	return buf
}

func decodeProposalTransaction(buf []byte) (ProposalTransaction, error) {
	if len(buf) < 1+address.Size+1+4 || discriminator(buf[0]) != discProposalTransaction {
		return ProposalTransaction{}, newError(CodeInvalidAccountData, "proposal transaction record malformed")
	}
	var tx ProposalTransaction
	off := 1
	proposal, err := address.FromBytes(buf[off : off+address.Size])
	if err != nil {
		return ProposalTransaction{}, newError(CodeInvalidAccountData, err.Error())
	}
	tx.Proposal = proposal
	off += address.Size
	tx.Bump = buf[off]
	off++
	count := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	tx.Instructions = make([]ProposalInstruction, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+address.Size+4 > len(buf) {
			return ProposalTransaction{}, newError(CodeInvalidAccountData, "proposal transaction truncated")
		}
		var ins ProposalInstruction
		programID, err := address.FromBytes(buf[off : off+address.Size])
		if err != nil {
			return ProposalTransaction{}, newError(CodeInvalidAccountData, err.Error())
		}
		ins.ProgramID = programID
		off += address.Size
		metaCount := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		ins.AccountMetas = make([]AccountMeta, 0, metaCount)
		for j := uint32(0); j < metaCount; j++ {
			if off+accountMetaLen > len(buf) {
				return ProposalTransaction{}, newError(CodeInvalidAccountData, "proposal transaction truncated")
			}
			key, err := address.FromBytes(buf[off : off+address.Size])
			if err != nil {
				return ProposalTransaction{}, newError(CodeInvalidAccountData, err.Error())
			}
			off += address.Size
			meta := AccountMeta{Key: key, IsSigner: buf[off] != 0}
			off++
			meta.IsWritable = buf[off] != 0
			off++
			ins.AccountMetas = append(ins.AccountMetas, meta)
		}
		if off+4 > len(buf) {
			return ProposalTransaction{}, newError(CodeInvalidAccountData, "proposal transaction truncated")
		}
		dataLen := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		if off+int(dataLen)+1 > len(buf) {
			return ProposalTransaction{}, newError(CodeInvalidAccountData, "proposal transaction truncated")
		}
		ins.Data = append([]byte(nil), buf[off:off+int(dataLen)]...)
		off += int(dataLen)
		ins.Executed = buf[off] != 0
		off++
		tx.Instructions = append(tx.Instructions, ins)
	}
	return tx, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (s *Store) LoadProposalTransaction(addr address.Address) (ProposalTransaction, error) {
	raw, err := s.db.Get(addr.Bytes())
	if err == storage.ErrNotFound {
		return ProposalTransaction{}, newError(CodeUninitializedAccount, "proposal transaction account not initialized")
	}
	if err != nil {
		return ProposalTransaction{}, err
	}
	return decodeProposalTransaction(raw)
}

func (s *Store) SaveProposalTransaction(addr address.Address, tx ProposalTransaction, mustNotExist bool) error {
	if mustNotExist {
		exists, err := s.has(addr)
		if err != nil {
			return err
		}
		if exists {
			return newError(CodeAccountAlreadyInitialized, "proposal transaction already initialized")
		}
	}
	return s.db.Put(addr.Bytes(), encodeProposalTransaction(tx))
}

// pushInstruction appends a new, unexecuted instruction to the list.
func pushInstruction(tx ProposalTransaction, programID address.Address, metas []AccountMeta, data []byte) ProposalTransaction {
	next := tx
	next.Instructions = append(append([]ProposalInstruction(nil), tx.Instructions...), ProposalInstruction{
		ProgramID:    programID,
		AccountMetas: append([]AccountMeta(nil), metas...),
		Data:         append([]byte(nil), data...),
		Executed:     false,
	})
	return next
}

// removeInstruction removes the entry at index, shifting subsequent entries
// down by one (their indices change; callers must not hold stale indices).
func removeInstruction(tx ProposalTransaction, index uint32) (ProposalTransaction, error) {
	if int(index) >= len(tx.Instructions) {
		return ProposalTransaction{}, newError(CodeInvalidTransactionIndex, "instruction index out of range")
	}
	next := tx
	instructions := make([]ProposalInstruction, 0, len(tx.Instructions)-1)
	instructions = append(instructions, tx.Instructions[:index]...)
	instructions = append(instructions, tx.Instructions[index+1:]...)
	next.Instructions = instructions
	return next, nil
}
