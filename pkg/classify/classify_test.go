package classify

import (
	"errors"
	"testing"
)

func TestSubmitErrorClasses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil is success", nil, Success},
		{"nonce used is benign", errors.New("execution reverted: Bridge: Nonce has already been used."), Benign},
		{"invalid signature is fatal", errors.New("execution reverted: Bridge: Invalid signature."), Fatal},
		{"nonce used without Bridge prefix is still benign", errors.New("execution reverted: Nonce has already been used"), Benign},
		{"invalid signature without Bridge prefix is still fatal", errors.New("execution reverted: Invalid signature"), Fatal},
		{"insufficient funds is resource exhaustion", errors.New("insufficient funds for gas * price + value"), ResourceExhausted},
		{"connection refused is transient", errors.New("dial tcp 127.0.0.1:8545: connection refused"), Transient},
		{"timeout is transient", errors.New("context deadline exceeded"), Transient},
		{"unexpected revert is fatal", errors.New("execution reverted: custom error XYZ"), Fatal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SubmitError(tc.err)
			if got != tc.want {
				t.Fatalf("SubmitError(%v) = %s, want %s", tc.err, got, tc.want)
			}
			t.Logf("PASS: %s -> %s", tc.name, got)
		})
	}
}

func TestQueryErrorIsAlwaysTransientOrSuccess(t *testing.T) {
	if QueryError(nil) != Success {
		t.Fatalf("nil query error should be Success")
	}
	if QueryError(errors.New("boom")) != Transient {
		t.Fatalf("any query error should classify as Transient")
	}
	t.Logf("PASS: query errors classify as transient")
}
