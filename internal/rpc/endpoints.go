package rpc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/sirupsen/logrus"
)

// ErrNoEndpoints means no RPC endpoint was configured. Fatal at startup, not
// retryable.
var ErrNoEndpoints = errors.New("rpc: no endpoints configured")

// Endpoint is one remote RPC handle with its failure accounting.
type Endpoint struct {
	Name   string
	Client *Client

	failures int
}

// Manager owns the primary and optional backup endpoint handles, one
// designated active. Failover after consecutive failures, fail-back when the
// periodic health probe sees the primary recover. The active handle lives in
// an atomic pointer so concurrent callers never observe a half-switched state.
type Manager struct {
	mu      sync.Mutex
	primary *Endpoint
	backup  *Endpoint
	active  atomic.Pointer[Endpoint]

	threshold int
	interval  time.Duration
	logger    *logrus.Logger
}

// ManagerConfig holds configuration for the endpoint manager.
type ManagerConfig struct {
	Primary       *Client
	Backup        *Client // optional
	FailThreshold int
	HealthCheck   time.Duration
	Logger        *logrus.Logger
}

// NewManager creates an endpoint manager. Primary is required.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Primary == nil {
		return nil, ErrNoEndpoints
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = 3
	}
	if cfg.HealthCheck < constants.MinHealthCheckInterval {
		cfg.HealthCheck = constants.MinHealthCheckInterval
	}

	m := &Manager{
		primary:   &Endpoint{Name: "primary", Client: cfg.Primary},
		threshold: cfg.FailThreshold,
		interval:  cfg.HealthCheck,
		logger:    cfg.Logger,
	}
	if cfg.Backup != nil {
		m.backup = &Endpoint{Name: "backup", Client: cfg.Backup}
	}
	m.active.Store(m.primary)
	return m, nil
}

// Active returns the currently healthy endpoint handle.
func (m *Manager) Active() (*Endpoint, error) {
	ep := m.active.Load()
	if ep == nil {
		return nil, ErrNoEndpoints
	}
	return ep, nil
}

// ReportSuccess resets the endpoint's consecutive-failure counter.
func (m *Manager) ReportSuccess(ep *Endpoint) {
	if ep == nil {
		return
	}
	m.mu.Lock()
	ep.failures = 0
	m.mu.Unlock()
}

// ReportFailure increments the endpoint's failure counter. When the active
// handle reaches the threshold the other handle becomes active and both
// counters reset.
func (m *Manager) ReportFailure(ep *Endpoint) {
	if ep == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ep.failures++
	if ep != m.active.Load() || ep.failures < m.threshold {
		return
	}

	other := m.other(ep)
	if other == nil {
		// Nothing to fail over to; keep the counter so logs show the streak.
		m.logger.WithField("failures", ep.failures).Warn("active endpoint failing with no backup configured")
		return
	}

	m.primary.failures = 0
	if m.backup != nil {
		m.backup.failures = 0
	}
	m.active.Store(other)
	m.logger.WithFields(logrus.Fields{
		"from": ep.Name,
		"to":   other.Name,
	}).Warn("rpc endpoint failover")
}

// HealthCheck probes the non-active handle and, when the primary has
// recovered while the backup is active, switches back to primary. Probe
// failures are absorbed; this never panics out of the layer.
func (m *Manager) HealthCheck(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithField("panic", r).Error("health check recovered")
		}
	}()

	active := m.active.Load()
	idle := m.other(active)
	if idle == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := idle.Client.GetHealth(probeCtx); err != nil {
		// Still unhealthy; nothing to do.
		m.logger.WithError(err).WithField("endpoint", idle.Name).Debug("health probe failed")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Prefer primary when healthy.
	if m.active.Load() == m.backup && idle == m.primary {
		m.primary.failures = 0
		m.backup.failures = 0
		m.active.Store(m.primary)
		m.logger.Info("primary endpoint recovered, switching back")
	}
}

// StartHealthLoop runs HealthCheck on the configured interval until the
// context is cancelled.
func (m *Manager) StartHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.HealthCheck(ctx)
		}
	}
}

// Call routes a JSON-RPC call through the active endpoint and feeds the
// outcome back into failover accounting.
func (m *Manager) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	ep, err := m.Active()
	if err != nil {
		return err
	}
	if err := ep.Client.Call(ctx, method, params, result); err != nil {
		m.ReportFailure(ep)
		return err
	}
	m.ReportSuccess(ep)
	return nil
}

func (m *Manager) other(ep *Endpoint) *Endpoint {
	if ep == m.primary {
		return m.backup
	}
	return m.primary
}

// Failures returns the endpoint's current consecutive-failure count.
func (m *Manager) Failures(ep *Endpoint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ep.failures
}
