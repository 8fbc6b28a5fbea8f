package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSchedule = "@every 1m"
	probeTimeout    = 5 * time.Second
)

// Target is one named service whose reachability is probed.
type Target struct {
	Name string
	URL  string
}

// StateStore remembers which targets are down. MarkDown and MarkUp report
// whether the call changed the stored state.
type StateStore interface {
	MarkDown(ctx context.Context, target string) (bool, error)
	MarkUp(ctx context.Context, target string) (bool, error)
}

// Monitor probes targets on a cron schedule and raises one
// system_alert_service_unreachable event per transition to down.
type Monitor struct {
	schedule cron.Schedule
	spec     string
	targets  []Target
	client   *resty.Client
	state    StateStore
	trigger  service.EventTrigger
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func New(
	spec string,
	targets []Target,
	client *resty.Client,
	state StateStore,
	trigger service.EventTrigger,
	logger *zap.Logger,
) (*Monitor, error) {
	if trigger == nil {
		return nil, fmt.Errorf("event trigger is required")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid monitor schedule %q: %w", spec, err)
	}
	if client == nil {
		client = resty.New().SetTimeout(probeTimeout)
	}
	client.SetRetryCount(0)
	if state == nil {
		state = NewMemoryState()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		schedule: schedule,
		spec:     spec,
		targets:  targets,
		client:   client,
		state:    state,
		trigger:  trigger,
		logger:   logger,
	}, nil
}

func (m *Monitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Start runs the probe schedule until ctx is done. Overlapping runs are
// skipped.
func (m *Monitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(m.targets) == 0 {
		m.logger.Info("health monitor has no targets, not starting")
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(m.schedule, cron.FuncJob(func() {
		m.CheckAll(ctx)
	}))
	c.Start()
	m.logger.Info("health monitor started",
		zap.String("schedule", m.spec),
		zap.Int("targets", len(m.targets)),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	m.logger.Info("health monitor stopped")
	return nil
}

// CheckAll probes every target concurrently and waits for all of them.
func (m *Monitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range m.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.check(ctx, target)
		}()
	}
	wg.Wait()
}

func (m *Monitor) check(ctx context.Context, target Target) {
	logger := m.logger.With(zap.String("target", target.Name))

	probeErr := m.probe(ctx, target)
	m.metrics.SetMonitorTargetUp(target.Name, probeErr == nil)

	if probeErr == nil {
		recovered, err := m.state.MarkUp(ctx, target.Name)
		if err != nil {
			logger.Warn("failed to store monitor state", zap.Error(err))
			return
		}
		if recovered {
			logger.Info("monitored service recovered")
		}
		return
	}

	wentDown, err := m.state.MarkDown(ctx, target.Name)
	if err != nil {
		logger.Warn("failed to store monitor state", zap.Error(err))
		return
	}
	if !wentDown {
		return
	}

	logger.Warn("monitored service unreachable", zap.Error(probeErr))

	alertCtx, _ := observability.EnsureCorrelationID(ctx)
	result, err := m.trigger.TriggerEvent(alertCtx, domain.EventSystemServiceUnreachable, unreachableContext(target, probeErr),
		&service.DeliveryOptions{IncludeGlobalEndpoints: true})
	if err != nil {
		logger.Error("failed to dispatch unreachable alert", zap.Error(err))
		// Clear the down mark so the next failing tick alerts again.
		if _, markErr := m.state.MarkUp(ctx, target.Name); markErr != nil {
			logger.Warn("failed to reset monitor state", zap.Error(markErr))
		}
		return
	}
	if result.Eligible == 0 {
		logger.Warn("no endpoints configured for system alerts")
		return
	}
	if result.Delivered < result.Eligible {
		logger.Error("unreachable alert not delivered to every endpoint",
			zap.Int("eligible", result.Eligible),
			zap.Int("delivered", result.Delivered),
		)
	}
}

func (m *Monitor) probe(ctx context.Context, target Target) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	response, err := m.client.R().SetContext(probeCtx).Get(target.URL)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if response.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("responded with status %d", response.StatusCode())
	}
	return nil
}

func unreachableContext(target Target, cause error) domain.EventContext {
	return domain.EventContext{
		Subject:  fmt.Sprintf("%s is unreachable", target.Name),
		Message:  fmt.Sprintf("Health check for %s failed: %v", target.Name, cause),
		Severity: domain.SeverityCritical,
		URL:      target.URL,
		Fields: []domain.Field{
			{Name: "Service", Value: target.Name, Inline: true},
			{Name: "URL", Value: target.URL, Inline: true},
		},
	}
}

// MemoryState is the in-process StateStore used when no Redis is configured.
type MemoryState struct {
	mu   sync.Mutex
	down map[string]struct{}
}

func NewMemoryState() *MemoryState {
	return &MemoryState{down: make(map[string]struct{})}
}

func (s *MemoryState) MarkDown(_ context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.down[target]; ok {
		return false, nil
	}
	s.down[target] = struct{}{}
	return true, nil
}

func (s *MemoryState) MarkUp(_ context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.down[target]; !ok {
		return false, nil
	}
	delete(s.down, target)
	return true, nil
}
