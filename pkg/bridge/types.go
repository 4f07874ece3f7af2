// Package bridge holds the shared data model for the cross-chain release
// relayer: the lock event observed on the source chain, the authorization
// constructed for the destination chain, and the ABI/topic plumbing both
// sides agree on.
package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LockEvent is one TokensLocked log decoded from the source chain.
type LockEvent struct {
	Sequence    uint64
	Recipient   common.Address
	Amount      *big.Int
	SourceBlock uint64
	SourceTx    common.Hash
	LogIndex    uint
}

// Authorization is the signed release request built for the destination chain.
type Authorization struct {
	Recipient common.Address
	Amount    *big.Int
	Sequence  uint64
	Signature [65]byte
}

// Before reports whether e should be processed ahead of other in the
// scanner's emission order: ascending (source_block, log_index).
func (e LockEvent) Before(other LockEvent) bool {
	if e.SourceBlock != other.SourceBlock {
		return e.SourceBlock < other.SourceBlock
	}
	return e.LogIndex < other.LogIndex
}
