package bridge

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LockEventSignature is the canonical event signature hashed to produce
// topic[0] of every TokensLocked log (§3/§6).
const LockEventSignature = "TokensLocked(uint256,address,uint256)"

// ClaimedEventSignature is the destination-side counterpart emitted once a
// release succeeds (§3). It is declared for reference only; no package in
// the relayer parses or matches against this log.
const ClaimedEventSignature = "TokensClaimed(uint256,address,uint256)"

// ReleaseMethod is the destination contract entrypoint invoked by the submitter.
const ReleaseMethod = "releaseTokens"

// releaseABIJSON is the minimal ABI fragment needed to pack a releaseTokens call.
// Only the method the relayer calls is declared; the destination contract's
// full surface is out of scope (spec §1).
const releaseABIJSON = `[
  {
    "type": "function",
    "name": "releaseTokens",
    "inputs": [
      {"name": "recipient", "type": "address"},
      {"name": "amount", "type": "uint256"},
      {"name": "sequence", "type": "uint256"},
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  }
]`

// LockEventTopic is topic[0] of every TokensLocked log: keccak-256 of the
// canonical event signature. Computed once at package init.
var LockEventTopic = crypto.Keccak256Hash([]byte(LockEventSignature))

// ReleaseABI returns the parsed ABI used to pack releaseTokens calls.
func ReleaseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(releaseABIJSON))
}

// PackRelease encodes a releaseTokens(address,uint256,uint256,bytes) call.
func PackRelease(parsed abi.ABI, auth Authorization) ([]byte, error) {
	seq := new(big.Int).SetUint64(auth.Sequence)
	return parsed.Pack(ReleaseMethod, auth.Recipient, auth.Amount, seq, auth.Signature[:])
}

// DecodeLockLog extracts a LockEvent from a raw log's indexed topics. All
// three fields are indexed (§3), so the data payload is empty and never
// consulted.
func DecodeLockLog(topics []common.Hash, blockNumber uint64, txHash common.Hash, logIndex uint) (LockEvent, bool) {
	if len(topics) != 4 || topics[0] != LockEventTopic {
		return LockEvent{}, false
	}
	seq := topics[1].Big()
	recipient := common.BytesToAddress(topics[2].Bytes())
	amount := topics[3].Big()

	return LockEvent{
		Sequence:    seq.Uint64(),
		Recipient:   recipient,
		Amount:      amount,
		SourceBlock: blockNumber,
		SourceTx:    txHash,
		LogIndex:    logIndex,
	}, true
}
