package chainclient

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestIsProviderRangeCapMatchesKnownSubstrings(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"query returned more than 10000 results", true},
		{"block range is too large", true},
		{"range limit exceeded for free tier", true},
		{"rpc error: exceeds the range limit", true},
		{"insufficient funds for gas", false},
		{"execution reverted: Bridge: Invalid signature.", false},
	}
	for _, tc := range cases {
		got := isProviderRangeCap(errors.New(tc.msg))
		if got != tc.want {
			t.Errorf("isProviderRangeCap(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestDeriveAddressMatchesPublicKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr, err := DeriveAddress(key)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)
	if addr != want {
		t.Fatalf("DeriveAddress = %s, want %s", addr.Hex(), want.Hex())
	}
}
