package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"

	"fieldlog/internal/fieldlog"
)

// Drainer is the part of the sync engine the monitor drives.
// Satisfied by *fieldlog.Service.
type Drainer interface {
	Drain(ctx context.Context) (*fieldlog.DrainResult, error)
	Draining() bool
}

// Monitor watches reachability and triggers a drain on every offline to
// online transition while the queue is non-empty. Re-entrant triggers are
// suppressed twice over: the monitor only reacts to edges, and the engine
// rejects overlapping drains.
type Monitor struct {
	probe    fieldlog.Probe
	queue    fieldlog.Queue
	drainer  Drainer
	logger   fieldlog.Logger
	interval time.Duration

	mu      sync.Mutex
	online  bool
	started bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor creates a Monitor polling at the given interval.
func NewMonitor(probe fieldlog.Probe, queue fieldlog.Queue, drainer Drainer, logger fieldlog.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		probe:    probe,
		queue:    queue,
		drainer:  drainer,
		logger:   logger,
		interval: interval,
	}
}

// Start samples reachability immediately, then polls in the background.
// A process that launches online with entries left over from a previous
// session drains them right away. A stopped monitor may be started again.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	// Fresh channels per run, so a restart after Stop gets its own pair.
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	initial := m.probe.Online(ctx)
	m.mu.Lock()
	m.online = initial
	m.mu.Unlock()

	m.logger.Info("connectivity monitor started", "online", initial)
	if initial {
		m.maybeDrain(ctx)
	}

	go m.loop(ctx, stopCh, doneCh)
}

// Stop halts the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Online returns the last sampled reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}

// Sample probes reachability once and reacts to a state transition.
func (m *Monitor) Sample(ctx context.Context) {
	online := m.probe.Online(ctx)

	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	switch {
	case online && !wasOnline:
		m.logger.Info("connectivity restored")
		m.maybeDrain(ctx)
	case !online && wasOnline:
		m.logger.Info("connectivity lost")
	}
}

// maybeDrain triggers one drain when the queue has entries.
func (m *Monitor) maybeDrain(ctx context.Context) {
	count, err := m.queue.Count()
	if err != nil {
		m.logger.Error("checking queue before drain", "error", err)
		return
	}
	if count == 0 {
		return
	}

	res, err := m.drainer.Drain(ctx)
	if err != nil {
		if errors.Is(err, fieldlog.ErrDrainInProgress) {
			m.logger.Debug("drain already in progress, transition ignored")
			return
		}
		m.logger.Error("drain after reconnect failed", "error", err)
		return
	}
	m.logger.Info("drain after reconnect finished", "succeeded", res.Succeeded, "failed", res.Failed)
}

// ManualSync runs a user-requested drain. It re-probes reachability first:
// a request while offline or while a drain is already running is a no-op,
// reported as not applicable via ErrOffline / ErrDrainInProgress.
func (m *Monitor) ManualSync(ctx context.Context) (*fieldlog.DrainResult, error) {
	online := m.probe.Online(ctx)

	m.mu.Lock()
	m.online = online
	m.mu.Unlock()

	if !online {
		return nil, fieldlog.ErrOffline
	}
	if m.drainer.Draining() {
		return nil, fieldlog.ErrDrainInProgress
	}
	return m.drainer.Drain(ctx)
}
