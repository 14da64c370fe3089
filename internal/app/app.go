package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fieldlog/internal/config"
	"fieldlog/internal/connectivity"
	"fieldlog/internal/encryption"
	"fieldlog/internal/fieldlog"
	"fieldlog/internal/identity"
	"fieldlog/internal/model"
	"fieldlog/internal/queue"
	"fieldlog/internal/remote"
)

// App is the application layer between the CLI and the submission service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw inputs, and manages the queue lifecycle on Close.
type App struct {
	cfg     *config.Config
	queue   fieldlog.Queue
	probe   fieldlog.Probe
	service *fieldlog.Service
	monitor *connectivity.Monitor
	logFile *os.File
}

// Status summarizes the client's current state for display.
type Status struct {
	DeviceID string
	Online   bool
	Pending  int
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Submit", "Sync").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	sessionID := operation + "-" + time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	clock := fieldlog.RealClock{}
	idgen := fieldlog.UUIDGenerator{}

	q, err := queue.NewQueueFromConfig(cfg.Queue, clock, idgen)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating queue: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		q.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	store := remote.NewClient(cfg.Remote, log)
	ident := identity.NewTokenIdentity(cfg.Remote.AccessToken)
	probe := connectivity.NewHTTPProbe(cfg.Remote.BaseURL + cfg.Connectivity.HealthPath)

	svc := fieldlog.NewService(q, store, ident, probe, enc, log, clock, idgen)

	interval := time.Duration(cfg.Connectivity.PollSeconds) * time.Second
	mon := connectivity.NewMonitor(probe, q, svc, log, interval)

	return &App{
		cfg:     cfg,
		queue:   q,
		probe:   probe,
		service: svc,
		monitor: mon,
		logFile: logFile,
	}, nil
}

// SubmitFile reads a submission from a JSON file and submits it.
// ackGap marks any schedule gap as acknowledged by the user.
func (a *App) SubmitFile(ctx context.Context, path string, ackGap bool) (*fieldlog.SubmitResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading submission file: %w", err)
	}

	var sub model.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("parsing submission file: %w", err)
	}
	if ackGap {
		sub.GapAcknowledged = true
	}

	return a.service.Submit(ctx, &sub)
}

// QueueEntries returns all queued submissions in drain order.
func (a *App) QueueEntries() ([]model.PendingSubmission, error) {
	return a.service.PendingEntries()
}

// Retry re-marks a failed entry so the next drain picks it up again.
func (a *App) Retry(id string) error {
	return a.service.RetryEntry(id)
}

// Sync runs a user-requested drain.
func (a *App) Sync(ctx context.Context) (*fieldlog.DrainResult, error) {
	return a.monitor.ManualSync(ctx)
}

// Watch runs the connectivity monitor until ctx is cancelled. Queued entries
// drain automatically whenever reachability is restored.
func (a *App) Watch(ctx context.Context) error {
	a.monitor.Start(ctx)
	<-ctx.Done()
	a.monitor.Stop()
	return ctx.Err()
}

// GetStatus probes reachability and reports it with the queue depth.
func (a *App) GetStatus(ctx context.Context) (*Status, error) {
	online := a.probe.Online(ctx)
	count, err := a.service.PendingCount()
	if err != nil {
		return nil, fmt.Errorf("counting queued entries: %w", err)
	}

	return &Status{
		DeviceID: a.cfg.DeviceID,
		Online:   online,
		Pending:  count,
	}, nil
}

// GetRevisions returns the audit trail for a committed period.
func (a *App) GetRevisions(ctx context.Context, periodID string) ([]model.RevisionRecord, error) {
	return a.service.Revisions(ctx, periodID)
}

// Close releases the queue and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.queue.Close(); err != nil {
		firstErr = fmt.Errorf("closing queue: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
