// Package submitter implements the Release Submitter (C6): per event it
// consults the Processed-Set, asks the Signer for an authorization, submits
// the release call through the Chain Client, awaits the receipt, and
// classifies the outcome so the supervisor knows whether to advance, retry,
// or halt.
package submitter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/certen-labs/bridge-relayer/pkg/bridge"
	"github.com/certen-labs/bridge-relayer/pkg/chainclient"
	"github.com/certen-labs/bridge-relayer/pkg/classify"
)

// ChainSubmitter is the subset of the Chain Client the submitter depends on
// for destination-chain interaction.
type ChainSubmitter interface {
	SubmitSignedCall(ctx context.Context, contract common.Address, data []byte, key *ecdsa.PrivateKey, chainID *big.Int, gasLimit uint64) (*types.Transaction, error)
	AwaitReceipt(ctx context.Context, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error)
	ReplayRevertReason(ctx context.Context, tx *types.Transaction, fromAddr common.Address, blockNumber *big.Int) error
}

// EventSigner is the subset of the Signer the submitter depends on.
type EventSigner interface {
	Sign(recipient common.Address, amount *big.Int, sequence uint64) ([65]byte, error)
}

// ProcessedSet is the subset of the Processed-Set the submitter depends on.
type ProcessedSet interface {
	Contains(sequence uint64) bool
	Insert(sequence uint64)
}

// Config holds the fixed parameters a Submitter needs to build and send a
// releaseTokens call (§4.6, §6).
type Config struct {
	DestinationBridge common.Address
	DestinationKey    *ecdsa.PrivateKey
	DestinationChain  *big.Int
	GasLimit          uint64
	TxTimeout         time.Duration
}

// Submitter drives the release side of the bridge (C6).
type Submitter struct {
	chain  ChainSubmitter
	signer EventSigner
	seen   ProcessedSet
	cfg    Config
	abi    abi.ABI
	logger *log.Logger
}

// New constructs a Submitter. The release ABI is parsed once at
// construction time since it never changes across calls.
func New(chain ChainSubmitter, signer EventSigner, seen ProcessedSet, cfg Config) (*Submitter, error) {
	parsed, err := bridge.ReleaseABI()
	if err != nil {
		return nil, fmt.Errorf("submitter: parse release abi: %w", err)
	}
	if cfg.GasLimit == 0 {
		return nil, fmt.Errorf("submitter: GasLimit must be positive")
	}
	if cfg.TxTimeout <= 0 {
		return nil, fmt.Errorf("submitter: TxTimeout must be positive")
	}
	return &Submitter{
		chain:  chain,
		signer: signer,
		seen:   seen,
		cfg:    cfg,
		abi:    parsed,
		logger: log.New(os.Stderr, "[Submitter] ", log.LstdFlags),
	}, nil
}

// Outcome reports what happened processing one event.
type Outcome struct {
	Sequence uint64
	Class    classify.Class
	TxHash   common.Hash
	Err      error
}

// Submit processes one lock event through steps 1-5 of §4.6. The returned
// Outcome's Class tells the caller (the supervisor) whether this event has
// reached terminal status (Success, Benign), must halt the relayer (Fatal),
// or must be retried (Transient, ResourceExhausted).
func (s *Submitter) Submit(ctx context.Context, event bridge.LockEvent) Outcome {
	requestID := uuid.New()

	if s.seen.Contains(event.Sequence) {
		s.logger.Printf("request=%s sequence=%d already processed, skipping", requestID, event.Sequence)
		return Outcome{Sequence: event.Sequence, Class: classify.Success}
	}

	sig, err := s.signer.Sign(event.Recipient, event.Amount, event.Sequence)
	if err != nil {
		return Outcome{Sequence: event.Sequence, Class: classify.Fatal, Err: fmt.Errorf("submitter: sign sequence %d: %w", event.Sequence, err)}
	}

	auth := bridge.Authorization{
		Recipient: event.Recipient,
		Amount:    event.Amount,
		Sequence:  event.Sequence,
		Signature: sig,
	}

	data, err := bridge.PackRelease(s.abi, auth)
	if err != nil {
		return Outcome{Sequence: event.Sequence, Class: classify.Fatal, Err: fmt.Errorf("submitter: pack release sequence %d: %w", event.Sequence, err)}
	}

	s.logger.Printf("request=%s sequence=%d recipient=%s amount=%s submitting release", requestID, event.Sequence, event.Recipient.Hex(), event.Amount.String())

	tx, err := s.chain.SubmitSignedCall(ctx, s.cfg.DestinationBridge, data, s.cfg.DestinationKey, s.cfg.DestinationChain, s.cfg.GasLimit)
	if err != nil {
		class := classify.SubmitError(err)
		s.logger.Printf("request=%s sequence=%d submit failed class=%s err=%v", requestID, event.Sequence, class, err)
		if class == classify.Benign {
			// Already consumed by a prior run or a peer; treat as success.
			s.seen.Insert(event.Sequence)
		}
		return Outcome{Sequence: event.Sequence, Class: class, Err: err}
	}

	receipt, err := s.chain.AwaitReceipt(ctx, tx, s.cfg.TxTimeout)
	if err != nil {
		class := classify.SubmitError(err)
		s.logger.Printf("request=%s sequence=%d await receipt failed class=%s err=%v", requestID, event.Sequence, class, err)
		if class == classify.Benign {
			s.seen.Insert(event.Sequence)
		}
		return Outcome{Sequence: event.Sequence, Class: class, TxHash: tx.Hash(), Err: err}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		// The chain mined the transaction but the call reverted on-chain.
		// The receipt's status byte alone carries no reason text, so
		// replay the exact call as of the mined block to recover the
		// provider's revert reason and classify it properly (an
		// already-used sequence here must still be Benign, not Fatal —
		// this is the crash/replay recovery path of §4.6 step 5).
		revertErr := fmt.Errorf("release reverted on-chain, tx=%s", tx.Hash().Hex())
		if fromAddr, addrErr := chainclient.DeriveAddress(s.cfg.DestinationKey); addrErr == nil {
			if replayErr := s.chain.ReplayRevertReason(ctx, tx, fromAddr, receipt.BlockNumber); replayErr != nil {
				revertErr = replayErr
			}
		}
		class := classify.SubmitError(revertErr)
		s.logger.Printf("request=%s sequence=%d mined revert class=%s err=%v", requestID, event.Sequence, class, revertErr)
		if class == classify.Benign {
			s.seen.Insert(event.Sequence)
		}
		return Outcome{Sequence: event.Sequence, Class: class, TxHash: tx.Hash(), Err: revertErr}
	}

	s.seen.Insert(event.Sequence)
	s.logger.Printf("request=%s sequence=%d tx=%s released successfully", requestID, event.Sequence, tx.Hash().Hex())
	return Outcome{Sequence: event.Sequence, Class: classify.Success, TxHash: tx.Hash()}
}

// SubmitBatch processes events sequentially in the order given, stopping at
// the first non-terminal outcome so the caller knows which events in the
// batch have not yet reached terminal status (§4.6 ordering discipline).
func (s *Submitter) SubmitBatch(ctx context.Context, events []bridge.LockEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(events))
	for _, event := range events {
		outcome := s.Submit(ctx, event)
		outcomes = append(outcomes, outcome)
		if outcome.Class != classify.Success && outcome.Class != classify.Benign {
			break
		}
	}
	return outcomes
}
