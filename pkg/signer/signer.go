// Package signer implements the Authorization Signer (C2): a pure function
// of (recipient, amount, sequence) and a held ECDSA key, producing the
// 65-byte signature the destination contract verifies.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the authority's secret key and produces Authorizations over
// the canonical preimage. It never touches the network.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New parses a hex-encoded secret scalar (with or without a 0x prefix) and
// returns a Signer bound to it.
func New(secretKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secretKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer: parse secret key: %w", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signer: public key is not ECDSA")
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Address returns the authority address registered in the destination
// contract, derived from the held key.
func (s *Signer) Address() common.Address {
	return s.address
}

// CanonicalPreimage builds the exact byte sequence hashed for signing (§3):
// recipient (20 bytes) ‖ amount (32 bytes, big-endian) ‖ sequence (32 bytes,
// big-endian), with no padding or separators between fields.
func CanonicalPreimage(recipient common.Address, amount *big.Int, sequence uint64) []byte {
	buf := make([]byte, 0, 20+32+32)
	buf = append(buf, recipient.Bytes()...)
	buf = append(buf, leftPad32(amount)...)
	buf = append(buf, leftPad32(new(big.Int).SetUint64(sequence))...)
	return buf
}

func leftPad32(v *big.Int) []byte {
	out := make([]byte, 32)
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// Sign produces the 65-byte signature over the Ethereum-prefixed digest of
// the canonical preimage (§3/§4.2).
func (s *Signer) Sign(recipient common.Address, amount *big.Int, sequence uint64) ([65]byte, error) {
	var out [65]byte

	digest := crypto.Keccak256(CanonicalPreimage(recipient, amount, sequence))
	prefixed := crypto.Keccak256(prefixMessage(digest))

	sig, err := crypto.Sign(prefixed, s.key)
	if err != nil {
		return out, fmt.Errorf("signer: sign: %w", err)
	}
	if len(sig) != 65 {
		return out, fmt.Errorf("signer: unexpected signature length %d", len(sig))
	}
	copy(out[:], sig)

	// crypto.Sign returns a recovery id V in {0, 1}; Solidity's ecrecover
	// over an Ethereum-prefixed digest expects the legacy V in {27, 28}
	// (EIP-191/EIP-155 personal-sign convention). Shift it here so the
	// destination contract's on-chain ecrecover accepts this signature.
	out[64] += 27
	return out, nil
}

// prefixMessage reproduces the Ethereum "personal sign" envelope: the
// literal string "\x19Ethereum Signed Message:\n32" followed by the 32-byte
// digest, which is itself hashed before signing.
func prefixMessage(digest []byte) []byte {
	const prefix = "\x19Ethereum Signed Message:\n32"
	return append([]byte(prefix), digest...)
}
