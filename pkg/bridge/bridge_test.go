package bridge

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestLockEventTopicIsDeterministic(t *testing.T) {
	want := crypto.Keccak256Hash([]byte("TokensLocked(uint256,address,uint256)"))
	if LockEventTopic != want {
		t.Fatalf("LockEventTopic = %s, want %s", LockEventTopic.Hex(), want.Hex())
	}
}

func TestDecodeLockLogRoundTrip(t *testing.T) {
	recipient := common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	topics := []common.Hash{
		LockEventTopic,
		common.BigToHash(big.NewInt(42)),
		common.BytesToHash(recipient.Bytes()),
		common.BigToHash(big.NewInt(1000)),
	}
	txHash := common.HexToHash("0xabc")

	event, ok := DecodeLockLog(topics, 500, txHash, 3)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if event.Sequence != 42 {
		t.Fatalf("expected sequence 42, got %d", event.Sequence)
	}
	if event.Recipient != recipient {
		t.Fatalf("expected recipient %s, got %s", recipient.Hex(), event.Recipient.Hex())
	}
	if event.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected amount 1000, got %s", event.Amount.String())
	}
	if event.SourceBlock != 500 || event.SourceTx != txHash || event.LogIndex != 3 {
		t.Fatalf("unexpected event metadata: %+v", event)
	}
	t.Logf("PASS: decoded lock event round-trips through topic encoding")
}

func TestDecodeLockLogRejectsWrongTopicCount(t *testing.T) {
	topics := []common.Hash{LockEventTopic, common.BigToHash(big.NewInt(1))}
	if _, ok := DecodeLockLog(topics, 1, common.Hash{}, 0); ok {
		t.Fatalf("expected decode to fail with only 2 topics")
	}
}

func TestDecodeLockLogRejectsWrongSignature(t *testing.T) {
	wrongTopic := crypto.Keccak256Hash([]byte("SomethingElse(uint256)"))
	topics := []common.Hash{
		wrongTopic,
		common.BigToHash(big.NewInt(1)),
		common.Hash{},
		common.BigToHash(big.NewInt(1)),
	}
	if _, ok := DecodeLockLog(topics, 1, common.Hash{}, 0); ok {
		t.Fatalf("expected decode to fail for a non-matching topic0")
	}
}

func TestPackReleaseEncodesAllFields(t *testing.T) {
	parsed, err := ReleaseABI()
	if err != nil {
		t.Fatalf("ReleaseABI: %v", err)
	}
	auth := Authorization{
		Recipient: common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"),
		Amount:    big.NewInt(1000),
		Sequence:  7,
		Signature: [65]byte{1, 2, 3},
	}
	data, err := PackRelease(parsed, auth)
	if err != nil {
		t.Fatalf("PackRelease: %v", err)
	}
	// 4-byte selector + at least one 32-byte word per fixed argument.
	if len(data) < 4+32*3 {
		t.Fatalf("expected packed call data to carry at least 3 fixed words, got %d bytes", len(data))
	}

	unpacked, err := parsed.Unpack(ReleaseMethod, data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(unpacked) != 4 {
		t.Fatalf("expected 4 unpacked arguments, got %d", len(unpacked))
	}
	gotRecipient, ok := unpacked[0].(common.Address)
	if !ok || gotRecipient != auth.Recipient {
		t.Fatalf("unexpected recipient: %+v", unpacked[0])
	}
	gotAmount, ok := unpacked[1].(*big.Int)
	if !ok || gotAmount.Cmp(auth.Amount) != 0 {
		t.Fatalf("unexpected amount: %+v", unpacked[1])
	}
	gotSequence, ok := unpacked[2].(*big.Int)
	if !ok || gotSequence.Uint64() != auth.Sequence {
		t.Fatalf("unexpected sequence: %+v", unpacked[2])
	}
	gotSignature, ok := unpacked[3].([]byte)
	if !ok || string(gotSignature) != string(auth.Signature[:]) {
		t.Fatalf("unexpected signature: %+v", unpacked[3])
	}
}

func TestLockEventBeforeOrdersByBlockThenLogIndex(t *testing.T) {
	a := LockEvent{SourceBlock: 10, LogIndex: 2}
	b := LockEvent{SourceBlock: 10, LogIndex: 3}
	c := LockEvent{SourceBlock: 11, LogIndex: 0}

	if !a.Before(b) {
		t.Fatalf("expected a before b within the same block")
	}
	if b.Before(a) {
		t.Fatalf("expected b not before a")
	}
	if !b.Before(c) {
		t.Fatalf("expected b before c across blocks")
	}
}
