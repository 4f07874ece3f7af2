// Package scanner implements the Event Scanner (C5): polls the source
// chain head, queries TokensLocked logs in a MAX_WINDOW-capped range past
// the checkpoint cursor, and decodes them into an ordered batch.
package scanner

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/certen-labs/bridge-relayer/pkg/bridge"
)

// ChainReader is the subset of the Chain Client the scanner depends on.
type ChainReader interface {
	CurrentHead(ctx context.Context) (uint64, error)
	QueryLogs(ctx context.Context, contract common.Address, topic0 common.Hash, from, to uint64) ([]types.Log, error)
}

// Batch is one tick's worth of decoded events plus the block height the
// scanner has now covered. The supervisor advances the checkpoint to
// CoveredTo only once every event in Events reaches terminal status (§4.5).
type Batch struct {
	Events    []bridge.LockEvent
	CoveredTo uint64
}

// Scanner polls one source contract for TokensLocked events.
type Scanner struct {
	client         ChainReader
	bridgeAddress  common.Address
	maxWindow      uint64
	cursor         uint64
}

// Config controls the scanner's source contract and windowing behavior;
// the bootstrap cursor is resolved separately by Bootstrap.
type Config struct {
	BridgeAddress common.Address
	MaxWindow     uint64 // §4.5 MAX_WINDOW, e.g. 2000
}

// New constructs a Scanner starting at startCursor (typically the loaded
// checkpoint, or the bootstrap heuristic's result — see Bootstrap).
func New(client ChainReader, cfg Config, startCursor uint64) (*Scanner, error) {
	if cfg.MaxWindow == 0 {
		return nil, fmt.Errorf("scanner: MaxWindow must be positive")
	}
	return &Scanner{
		client:        client,
		bridgeAddress: cfg.BridgeAddress,
		maxWindow:     cfg.MaxWindow,
		cursor:        startCursor,
	}, nil
}

// Bootstrap resolves the cursor to use when no checkpoint has ever been
// persisted (§4.5, §9, §12). If deploymentBlock is non-nil, it takes
// precedence over the head-minus-lookback heuristic.
func Bootstrap(ctx context.Context, client ChainReader, lookback uint64, deploymentBlock *uint64) (uint64, error) {
	if deploymentBlock != nil {
		return *deploymentBlock, nil
	}
	head, err := client.CurrentHead(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanner: bootstrap head: %w", err)
	}
	if head > lookback {
		return head - lookback, nil
	}
	return 0, nil
}

// Cursor returns the scanner's current position (the last block it has
// fully covered, not yet advanced past a pending batch).
func (s *Scanner) Cursor() uint64 {
	return s.cursor
}

// Poll performs one scan tick (§4.5 steps 1-5). It does not advance the
// cursor itself — the caller must call Advance once the batch's events
// have all reached terminal status.
func (s *Scanner) Poll(ctx context.Context) (Batch, error) {
	head, err := s.client.CurrentHead(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("scanner: current head: %w", err)
	}

	if head <= s.cursor {
		return Batch{CoveredTo: s.cursor}, nil
	}

	to := s.cursor + s.maxWindow
	if to > head {
		to = head
	}

	logs, err := s.client.QueryLogs(ctx, s.bridgeAddress, bridge.LockEventTopic, s.cursor+1, to)
	if err != nil {
		return Batch{}, fmt.Errorf("scanner: query logs [%d,%d]: %w", s.cursor+1, to, err)
	}

	events := make([]bridge.LockEvent, 0, len(logs))
	for _, l := range logs {
		event, ok := bridge.DecodeLockLog(l.Topics, l.BlockNumber, l.TxHash, l.Index)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Before(events[j]) })

	return Batch{Events: events, CoveredTo: to}, nil
}

// Advance moves the cursor to to, which must be the CoveredTo of a Batch
// whose events have all reached terminal status.
func (s *Scanner) Advance(to uint64) {
	if to > s.cursor {
		s.cursor = to
	}
}
