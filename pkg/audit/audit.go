// Package audit records a non-authoritative trail of release attempts to
// Postgres, adapted from the reference database client's connection
// pooling and functional-options pattern. The relayer never reads this
// trail back to make correctness decisions — the checkpoint file and
// Processed-Set remain the sole sources of truth (§4.4, Non-goals); this
// table exists purely for operator visibility and incident review.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/certen-labs/bridge-relayer/pkg/classify"
)

// Client writes release outcomes to an audit table. A nil *Client is a
// valid no-op sink so callers don't need to branch on whether auditing is
// enabled.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// ClientOption configures an optional Client.
type ClientOption func(*Client)

// WithLogger overrides the client's default logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient opens a connection pool against databaseURL. An empty
// databaseURL is a configuration error — callers that want auditing
// disabled should simply not call NewClient (see NewNoop).
func NewClient(databaseURL string, opts ...ClientOption) (*Client, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("audit: database url cannot be empty")
	}

	client := &Client{
		logger: log.New(os.Stderr, "[Audit] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(client)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	client.db = db
	client.logger.Printf("connected to audit database")
	return client, nil
}

// NewNoop returns a *Client with no underlying connection; RecordOutcome
// on it is a no-op, used when AUDIT_DATABASE_URL is unset.
func NewNoop() *Client {
	return nil
}

// Close releases the connection pool. Safe to call on a noop client.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordOutcome inserts one row describing a submission attempt. Errors
// are logged, not returned: a failure to write the audit trail must never
// interrupt the relayer's release path.
func (c *Client) RecordOutcome(ctx context.Context, sequence uint64, recipient string, amount *big.Int, class classify.Class, txHash string, errMsg string) {
	if c == nil || c.db == nil {
		return
	}

	amountText := ""
	if amount != nil {
		amountText = amount.String()
	}

	const stmt = `
		INSERT INTO release_audit (sequence, recipient, amount, class, tx_hash, error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.ExecContext(ctx, stmt, sequence, recipient, amountText, class.String(), txHash, errMsg, time.Now().UTC())
	if err != nil {
		c.logger.Printf("failed to record audit row for sequence %d: %v", sequence, err)
	}
}

// Health reports whether the audit database is reachable. Non-authoritative:
// an audit outage never blocks releases, and the relayer's /healthz report
// does not include it.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("audit: health check failed: %w", err)
	}
	return nil
}
