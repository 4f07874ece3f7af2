// Package dashboard mirrors the relayer's status to Firestore for a
// real-time operator UI, adapted from the reference Firebase Admin SDK
// client. Mirroring is best-effort and never authoritative: the
// supervisor's own checkpoint and Processed-Set remain the only sources
// of truth (Non-goals) — Firestore here is a read model, not storage.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/certen-labs/bridge-relayer/pkg/classify"
)

// Client wraps the Firestore client used to mirror relayer status.
type Client struct {
	app       *firebase.App
	firestore *gcpfirestore.Client
	projectID string
	logger    *log.Logger
	enabled   bool
	mu        sync.RWMutex
}

// Config controls whether and how the dashboard mirror connects.
type Config struct {
	ProjectID       string
	CredentialsFile string
	Enabled         bool
}

// New creates a Client. When cfg.Enabled is false, every mirroring call is
// a no-op and no Firebase app is created — this is the default so the
// relayer never requires GCP credentials to run.
func New(ctx context.Context, cfg Config) (*Client, error) {
	client := &Client{
		projectID: cfg.ProjectID,
		logger:    log.New(os.Stderr, "[Dashboard] ", log.LstdFlags),
		enabled:   cfg.Enabled,
	}

	if !cfg.Enabled {
		client.logger.Println("status mirror disabled, running in no-op mode")
		return client, nil
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("dashboard: FIREBASE_PROJECT_ID is required when the status mirror is enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: initialize firebase app: %w", err)
	}
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: create firestore client: %w", err)
	}

	client.app = app
	client.firestore = firestoreClient
	client.logger.Printf("status mirror connected to project %s", cfg.ProjectID)
	return client, nil
}

// Close releases the underlying Firestore connection. Safe on a disabled client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firestore != nil {
		return c.firestore.Close()
	}
	return nil
}

// IsEnabled reports whether mirroring is actually wired to Firestore.
func (c *Client) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Snapshot is one point-in-time view of the relayer's progress, mirrored
// to /relayerStatus/current.
type Snapshot struct {
	CheckpointHeight uint64    `firestore:"checkpointHeight"`
	SourceHeadHeight uint64    `firestore:"sourceHeadHeight"`
	State            string    `firestore:"state"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

// MirrorStatus writes the current Snapshot. A disabled client logs and
// returns nil rather than erroring, since a stalled dashboard must never
// stop the relayer from releasing funds.
func (c *Client) MirrorStatus(ctx context.Context, snapshot Snapshot) error {
	if !c.IsEnabled() {
		c.logger.Printf("mirror disabled, skipping status update at checkpoint=%d", snapshot.CheckpointHeight)
		return nil
	}
	_, err := c.firestore.Doc("relayerStatus/current").Set(ctx, snapshot)
	if err != nil {
		c.logger.Printf("failed to mirror status: %v", err)
		return fmt.Errorf("dashboard: mirror status: %w", err)
	}
	return nil
}

// ReleaseEntry is one row in the mirrored release history, written
// best-effort after each terminal submission outcome.
type ReleaseEntry struct {
	Sequence  uint64    `firestore:"sequence"`
	Recipient string    `firestore:"recipient"`
	Amount    string    `firestore:"amount"`
	Class     string    `firestore:"class"`
	TxHash    string    `firestore:"txHash,omitempty"`
	Error     string    `firestore:"error,omitempty"`
	Timestamp time.Time `firestore:"timestamp"`
}

// MirrorRelease appends one release outcome to /relayerStatus/current/releases/{sequence}.
func (c *Client) MirrorRelease(ctx context.Context, entry ReleaseEntry) error {
	if !c.IsEnabled() {
		return nil
	}
	docPath := fmt.Sprintf("relayerStatus/current/releases/%d", entry.Sequence)
	if _, err := c.firestore.Doc(docPath).Set(ctx, entry); err != nil {
		c.logger.Printf("failed to mirror release for sequence %d: %v", entry.Sequence, err)
		return fmt.Errorf("dashboard: mirror release %d: %w", entry.Sequence, err)
	}
	return nil
}

// ClassName is a small convenience so callers can pass a classify.Class
// straight into a ReleaseEntry without importing classify themselves.
func ClassName(c classify.Class) string {
	return c.String()
}
