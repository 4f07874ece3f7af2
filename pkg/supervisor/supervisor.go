// Package supervisor implements the Relayer Supervisor (C7): the top-level
// control loop that composes the Scanner and Submitter, advances the
// Checkpoint, and reacts to error classes with retry backoff or a fatal
// shutdown. Unlike the reference scheduler this ticks on a single
// goroutine — §4.7 mandates strictly sequential per-sequence attribution,
// so there is no batch-check/on-demand goroutine split to imitate here.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/certen-labs/bridge-relayer/pkg/bridge"
	"github.com/certen-labs/bridge-relayer/pkg/classify"
	"github.com/certen-labs/bridge-relayer/pkg/scanner"
	"github.com/certen-labs/bridge-relayer/pkg/submitter"
)

// State names the supervisor's position in the §4.7 state machine.
type State int

const (
	StateInit State = iota
	StateScanning
	StateSubmitting
	StateCheckpointing
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScanning:
		return "scanning"
	case StateSubmitting:
		return "submitting"
	case StateCheckpointing:
		return "checkpointing"
	default:
		return "unknown"
	}
}

// Scanner is the subset of the Event Scanner the supervisor depends on.
type Scanner interface {
	Poll(ctx context.Context) (scanner.Batch, error)
	Advance(to uint64)
}

// Submitter is the subset of the Release Submitter the supervisor depends on.
type Submitter interface {
	Submit(ctx context.Context, event bridge.LockEvent) submitter.Outcome
}

// CheckpointStore is the subset of the Checkpoint Store the supervisor
// depends on.
type CheckpointStore interface {
	Store(height uint64) error
}

// Config controls timing and backoff.
type Config struct {
	PollInterval time.Duration // §6 poll_interval_ms, default 5000ms
}

// Supervisor runs the C5 -> C6 -> C3 loop described in §4.7.
type Supervisor struct {
	scanner    Scanner
	submitter  Submitter
	checkpoint CheckpointStore
	cfg        Config
	logger     *log.Logger
	state      State
}

// New constructs a Supervisor.
func New(sc Scanner, sub Submitter, cp CheckpointStore, cfg Config) (*Supervisor, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("supervisor: PollInterval must be positive")
	}
	return &Supervisor{
		scanner:    sc,
		submitter:  sub,
		checkpoint: cp,
		cfg:        cfg,
		logger:     log.New(os.Stderr, "[Supervisor] ", log.LstdFlags),
		state:      StateInit,
	}, nil
}

// State returns the supervisor's current position in the state machine,
// mainly for tests and health reporting.
func (sv *Supervisor) State() State {
	return sv.state
}

// FatalError is returned by Run when a submission classifies as Fatal;
// the caller (main) should treat this as a signal to exit non-zero.
type FatalError struct {
	Sequence uint64
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("supervisor: fatal error on sequence %d: %v", e.Sequence, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Run executes the supervisor loop until ctx is cancelled (clean shutdown,
// §4.7's SIGINT/SIGTERM handling lives in the caller which cancels ctx) or
// a Fatal classification occurs (non-nil *FatalError return).
func (sv *Supervisor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			sv.logger.Printf("shutdown signal received, exiting cleanly at state=%s", sv.state)
			return nil
		default:
		}

		if err := sv.tick(ctx); err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return fatal
			}
			// Any other error is treated as transient per §4.7's "error
			// tick": sleep 2x poll interval and restart the loop without
			// advancing the checkpoint.
			sv.logger.Printf("error tick: %v; backing off %s", err, 2*sv.cfg.PollInterval)
			if !sv.sleep(ctx, 2*sv.cfg.PollInterval) {
				return nil
			}
			continue
		}

		if !sv.sleep(ctx, sv.cfg.PollInterval) {
			return nil
		}
	}
}

// sleep waits for d or ctx cancellation, reporting false if ctx was
// cancelled first.
func (sv *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// tick performs one Scanning -> Submitting -> Checkpointing cycle (§4.7).
func (sv *Supervisor) tick(ctx context.Context) error {
	sv.state = StateScanning
	batch, err := sv.scanner.Poll(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if len(batch.Events) > 0 {
		sv.state = StateSubmitting
		// Shutdown does not cancel an in-flight submission: each event runs
		// to completion (receipt waits are bounded by the submitter's
		// TxTimeout), and cancellation is checked between events instead.
		submitCtx := context.WithoutCancel(ctx)
		for _, event := range batch.Events {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("shutdown before sequence %d: %w", event.Sequence, err)
			}
			outcome := sv.submitter.Submit(submitCtx, event)
			switch outcome.Class {
			case classify.Success, classify.Benign:
				continue
			case classify.Fatal:
				return &FatalError{Sequence: outcome.Sequence, Err: outcome.Err}
			default:
				// Transient or ResourceExhausted: retryable, do not advance
				// the checkpoint past this or any later event in the batch.
				return fmt.Errorf("submit sequence %d: %w", outcome.Sequence, outcome.Err)
			}
		}
	}

	sv.state = StateCheckpointing

	// Advance unconditionally to CoveredTo once every event in the batch
	// (if any) has reached a terminal status — even when Events is empty.
	// The scanned window itself has still been fully covered; pinning the
	// cursor on an empty batch would mean any lock event beyond that
	// window is never scanned again, since the next tick would re-query
	// the same [cursor+1, cursor+MAX_WINDOW] range forever. This mirrors
	// the reference watcher's unconditional lastProcessedBlock update.
	if err := sv.checkpoint.Store(batch.CoveredTo); err != nil {
		return fmt.Errorf("checkpoint store %d: %w", batch.CoveredTo, err)
	}
	sv.scanner.Advance(batch.CoveredTo)
	sv.logger.Printf("checkpoint advanced to %d (%d events processed)", batch.CoveredTo, len(batch.Events))
	return nil
}
