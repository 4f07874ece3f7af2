package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen-labs/bridge-relayer/pkg/audit"
	"github.com/certen-labs/bridge-relayer/pkg/bridge"
	"github.com/certen-labs/bridge-relayer/pkg/chainclient"
	"github.com/certen-labs/bridge-relayer/pkg/checkpoint"
	"github.com/certen-labs/bridge-relayer/pkg/config"
	"github.com/certen-labs/bridge-relayer/pkg/dashboard"
	"github.com/certen-labs/bridge-relayer/pkg/health"
	"github.com/certen-labs/bridge-relayer/pkg/metrics"
	"github.com/certen-labs/bridge-relayer/pkg/processedset"
	"github.com/certen-labs/bridge-relayer/pkg/scanner"
	"github.com/certen-labs/bridge-relayer/pkg/signer"
	"github.com/certen-labs/bridge-relayer/pkg/submitter"
	"github.com/certen-labs/bridge-relayer/pkg/supervisor"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting bridge relayer")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sourceClient, err := chainclient.Dial(cfg.SourceRPCURL)
	if err != nil {
		log.Fatalf("failed to connect to source chain: %v", err)
	}
	destClient, err := chainclient.Dial(cfg.DestinationRPCURL)
	if err != nil {
		log.Fatalf("failed to connect to destination chain: %v", err)
	}

	if _, err := sourceClient.NetworkID(ctx); err != nil {
		log.Fatalf("failed to verify source chain network id: %v", err)
	}
	if _, err := destClient.NetworkID(ctx); err != nil {
		log.Fatalf("failed to verify destination chain network id: %v", err)
	}

	sign, err := signer.New(cfg.SignerSecretKey)
	if err != nil {
		log.Fatalf("failed to load signer key: %v", err)
	}
	log.Printf("signer address: %s", sign.Address().Hex())

	destKey, err := parseDestinationKey(cfg.SignerSecretKey)
	if err != nil {
		log.Fatalf("failed to parse signer key for destination submission: %v", err)
	}

	if balance, err := destClient.BalanceAt(ctx, sign.Address()); err != nil {
		log.Printf("warning: could not read destination signer balance: %v", err)
	} else if balance.Sign() == 0 {
		log.Printf("warning: destination signer account %s holds zero gas balance", sign.Address().Hex())
	}

	checkpointStore, err := checkpoint.New(cfg.CheckpointPath)
	if err != nil {
		log.Fatalf("failed to initialize checkpoint store: %v", err)
	}
	startCursor, err := checkpointStore.Load()
	if err != nil {
		log.Fatalf("failed to load checkpoint: %v", err)
	}
	if startCursor == 0 {
		startCursor, err = scanner.Bootstrap(ctx, sourceClient, cfg.DeploymentLookback, cfg.DeploymentBlock)
		if err != nil {
			log.Fatalf("failed to bootstrap scan cursor: %v", err)
		}
		log.Printf("no checkpoint found, bootstrapping cursor at block %d", startCursor)
	}

	metricsRegistry := metrics.NewWithRegisterer(prometheus.DefaultRegisterer)
	healthChecker := health.New(sourceClient, destClient)

	auditClient := audit.NewNoop()
	if cfg.AuditDatabaseURL != "" {
		auditClient, err = audit.NewClient(cfg.AuditDatabaseURL)
		if err != nil {
			log.Printf("warning: audit trail disabled, could not connect: %v", err)
			auditClient = audit.NewNoop()
		}
	}
	defer auditClient.Close()

	dashboardClient, err := dashboard.New(ctx, dashboard.Config{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredFile,
		Enabled:         cfg.FirestoreEnabled,
	})
	if err != nil {
		log.Fatalf("failed to initialize status mirror: %v", err)
	}
	defer dashboardClient.Close()

	rawScanner, err := scanner.New(sourceClient, scanner.Config{
		BridgeAddress: common.HexToAddress(cfg.SourceBridgeAddress),
		MaxWindow:     cfg.MaxWindow,
	}, startCursor)
	if err != nil {
		log.Fatalf("failed to initialize scanner: %v", err)
	}

	seen := processedset.New()
	rawSubmitter, err := submitter.New(destClient, sign, seen, submitter.Config{
		DestinationBridge: common.HexToAddress(cfg.DestinationBridgeAddress),
		DestinationKey:    destKey,
		DestinationChain:  big.NewInt(cfg.DestinationChainID),
		GasLimit:          cfg.ReleaseGasLimit,
		TxTimeout:         cfg.TxTimeout,
	})
	if err != nil {
		log.Fatalf("failed to initialize submitter: %v", err)
	}

	observedScanner := &observingScanner{inner: rawScanner, metrics: metricsRegistry, health: healthChecker}
	observedSubmitter := &observingSubmitter{inner: rawSubmitter, metrics: metricsRegistry, audit: auditClient, dashboard: dashboardClient}

	sv, err := supervisor.New(observedScanner, observedSubmitter, checkpointStore, supervisor.Config{
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		log.Fatalf("failed to initialize supervisor: %v", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", healthChecker.Handler())
	healthServer := &http.Server{Addr: cfg.HealthAddr, Handler: healthMux}
	go func() {
		log.Printf("health checks listening on %s", cfg.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("health server error: %v", err)
		}
	}()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- sv.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
		log.Printf("shutdown signal received, finishing in-flight work")
		cancel()
		<-runErrCh
	case err := <-runErrCh:
		var fatal *supervisor.FatalError
		if errors.As(err, &fatal) {
			log.Printf("fatal classification, halting: %v", fatal)
			healthChecker.RecordFatal(fatal.Error())
			exitCode = 1
		} else if err != nil {
			log.Printf("supervisor exited with error: %v", err)
			exitCode = 1
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = healthServer.Shutdown(shutdownCtx)

	log.Printf("bridge relayer exiting with code %d", exitCode)
	os.Exit(exitCode)
}

// parseDestinationKey re-derives the raw ECDSA key the Chain Client needs
// to sign destination transactions. The Signer (C2) only exposes the
// authorization preimage signature, never the raw key, so the Chain Client
// submission path parses it independently.
func parseDestinationKey(secretKeyHex string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(trimHexPrefix(secretKeyHex))
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// observingScanner decorates *scanner.Scanner with metrics and health
// reporting so the supervisor itself stays free of ambient-stack concerns.
type observingScanner struct {
	inner   *scanner.Scanner
	metrics *metrics.Registry
	health  *health.Checker
}

func (o *observingScanner) Poll(ctx context.Context) (scanner.Batch, error) {
	o.health.RecordTick(time.Now())
	o.metrics.TicksTotal.Inc()
	batch, err := o.inner.Poll(ctx)
	if err == nil {
		o.metrics.EventsScannedTotal.Add(float64(len(batch.Events)))
	}
	return batch, err
}

func (o *observingScanner) Advance(to uint64) {
	o.inner.Advance(to)
	o.metrics.CheckpointHeight.Set(float64(to))
}

// observingSubmitter decorates *submitter.Submitter with metrics, the
// audit trail, and the dashboard mirror — all non-authoritative, so none
// of their failures are allowed to change the Outcome returned.
type observingSubmitter struct {
	inner     *submitter.Submitter
	metrics   *metrics.Registry
	audit     *audit.Client
	dashboard *dashboard.Client
}

func (o *observingSubmitter) Submit(ctx context.Context, event bridge.LockEvent) submitter.Outcome {
	started := time.Now()
	outcome := o.inner.Submit(ctx, event)
	o.metrics.ReleaseDurationSecs.Observe(time.Since(started).Seconds())
	o.metrics.ObserveRelease(outcome.Class.String())

	errText := ""
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}
	o.audit.RecordOutcome(ctx, outcome.Sequence, event.Recipient.Hex(), event.Amount, outcome.Class, outcome.TxHash.Hex(), errText)
	if err := o.dashboard.MirrorRelease(ctx, dashboard.ReleaseEntry{
		Sequence:  outcome.Sequence,
		Recipient: event.Recipient.Hex(),
		Amount:    amountString(event.Amount),
		Class:     outcome.Class.String(),
		TxHash:    outcome.TxHash.Hex(),
		Error:     errText,
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf("dashboard mirror error for sequence %d: %v", outcome.Sequence, err)
	}

	return outcome
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return ""
	}
	return amount.String()
}
