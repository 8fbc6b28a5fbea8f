package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/provider"
	"go.uber.org/zap"
)

// ErrNoTargets is returned by SendTest when the endpoint cannot receive.
var ErrNoTargets = fmt.Errorf("%w: No target endpoints found", domain.ErrValidation)

// DeliveryOptions selects the candidate endpoints of one fan-out. A nil
// *DeliveryOptions means global endpoints only.
type DeliveryOptions struct {
	IncludeGlobalEndpoints bool
	TargetUserIDs          []string
	IgnoreEventFilters     bool
	Retry                  RetryOverride
}

// EndpointResult is the outcome for one eligible endpoint.
type EndpointResult struct {
	EndpointID   string
	EndpointName string
	EndpointType domain.ChannelType
	Result       domain.DeliveryResult
}

// FanoutResult summarises one TriggerEvent call.
type FanoutResult struct {
	Eligible  int
	Delivered int
	Results   []EndpointResult
}

// Dispatcher resolves the endpoints interested in an event and delivers to
// all of them concurrently.
type Dispatcher struct {
	endpoints EndpointSource
	adapters  AdapterLookup
	delivery  *DeliveryService
	builder   *message.Builder
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewDispatcher(
	endpoints EndpointSource,
	adapters AdapterLookup,
	delivery *DeliveryService,
	builder *message.Builder,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint source is required")
	}
	if adapters == nil {
		return nil, fmt.Errorf("adapter lookup is required")
	}
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if builder == nil {
		builder = message.NewBuilder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		endpoints: endpoints,
		adapters:  adapters,
		delivery:  delivery,
		builder:   builder,
		logger:    logger,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// TriggerEvent fans kind out to every eligible endpoint and waits for all
// deliveries. Zero eligible endpoints is not an error.
func (d *Dispatcher) TriggerEvent(
	ctx context.Context,
	kind domain.EventKind,
	eventCtx domain.EventContext,
	opts *DeliveryOptions,
) (FanoutResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !kind.IsValid() {
		return FanoutResult{}, fmt.Errorf("%w: unknown event kind %q", domain.ErrValidation, kind)
	}
	if err := eventCtx.Validate(); err != nil {
		return FanoutResult{}, err
	}
	if opts == nil {
		opts = &DeliveryOptions{IncludeGlobalEndpoints: true}
	}

	candidates, err := d.collectCandidates(ctx, opts)
	if err != nil {
		return FanoutResult{}, err
	}

	eligible := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.endpoint.AcceptsEvent(kind, opts.IgnoreEventFilters) {
			eligible = append(eligible, c)
		}
	}

	return d.fanOut(ctx, kind, eventCtx, eligible, opts.Retry), nil
}

// SendTest delivers a test notification to one endpoint, bypassing its event
// filters but not its enabled flag.
func (d *Dispatcher) SendTest(ctx context.Context, endpointID string) (FanoutResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(endpointID) == "" {
		return FanoutResult{}, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}

	endpoint, err := d.endpoints.GetByID(ctx, endpointID)
	if err != nil {
		return FanoutResult{}, err
	}

	var eligible []candidate
	if endpoint.AcceptsEvent(domain.EventTestNotification, true) {
		eligible = append(eligible, candidate{endpoint: *endpoint, targetUserID: endpoint.OwnerUserID})
	}

	eventCtx := domain.EventContext{
		Subject:  "Test Notification",
		Message:  fmt.Sprintf("This is a test notification for %q.", endpoint.Name),
		Severity: domain.SeverityInfo,
	}

	result := d.fanOut(ctx, domain.EventTestNotification, eventCtx, eligible, RetryOverride{})
	if result.Eligible == 0 {
		return result, ErrNoTargets
	}
	return result, nil
}

type candidate struct {
	endpoint     domain.NotificationEndpoint
	targetUserID *string
}

func (d *Dispatcher) collectCandidates(ctx context.Context, opts *DeliveryOptions) ([]candidate, error) {
	seen := make(map[string]struct{})
	var out []candidate

	add := func(endpoints []domain.NotificationEndpoint, targetUserID *string) {
		for _, endpoint := range endpoints {
			if _, ok := seen[endpoint.ID]; ok {
				continue
			}
			seen[endpoint.ID] = struct{}{}
			out = append(out, candidate{endpoint: endpoint, targetUserID: targetUserID})
		}
	}

	if opts.IncludeGlobalEndpoints {
		globals, err := d.endpoints.ListGlobalEndpoints(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list global endpoints: %w", err)
		}
		add(globals, nil)
	}

	seenUsers := make(map[string]struct{}, len(opts.TargetUserIDs))
	for _, userID := range opts.TargetUserIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if _, ok := seenUsers[userID]; ok {
			continue
		}
		seenUsers[userID] = struct{}{}

		owned, err := d.endpoints.ListEndpointsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list endpoints for user %s: %w", userID, err)
		}
		uid := userID
		add(owned, &uid)
	}

	return out, nil
}

func (d *Dispatcher) fanOut(
	ctx context.Context,
	kind domain.EventKind,
	eventCtx domain.EventContext,
	eligible []candidate,
	override RetryOverride,
) FanoutResult {
	// In-flight deliveries outlive the caller; values such as the
	// correlation id still flow through.
	deliveryCtx := context.WithoutCancel(ctx)
	d.metrics.ObserveFanout(len(eligible))

	results := make([]EndpointResult, len(eligible))
	var wg sync.WaitGroup
	for i, c := range eligible {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.deliverOne(deliveryCtx, kind, eventCtx, c, override)
		}()
	}
	wg.Wait()

	out := FanoutResult{Eligible: len(eligible), Results: results}
	for _, r := range results {
		if r.Result.Status == domain.DeliverySuccess {
			out.Delivered++
		}
	}

	observability.WithContextLogger(d.logger, ctx).Info("event dispatched",
		zap.String("eventKind", kind.String()),
		zap.Int("eligible", out.Eligible),
		zap.Int("delivered", out.Delivered),
	)
	return out
}

func (d *Dispatcher) deliverOne(
	ctx context.Context,
	kind domain.EventKind,
	eventCtx domain.EventContext,
	c candidate,
	override RetryOverride,
) (res EndpointResult) {
	endpoint := c.endpoint
	res = EndpointResult{
		EndpointID:   endpoint.ID,
		EndpointName: endpoint.Name,
		EndpointType: endpoint.Type,
	}

	channel := endpoint.Type.String()
	d.metrics.IncDeliveryInFlight(channel)
	defer d.metrics.DecDeliveryInFlight(channel)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("delivery panicked: %v", r)
			observability.WithContextLogger(d.logger, ctx).Error("endpoint delivery panicked",
				zap.String("endpointId", endpoint.ID),
				zap.Any("panic", r),
			)
			res.Result = domain.DeliveryResult{Status: domain.DeliveryFailure, Error: &msg}
		}
	}()

	target := DeliveryTarget{
		EndpointID:   endpoint.ID,
		EndpointType: endpoint.Type,
		EventKind:    kind,
		TargetUserID: c.targetUserID,
		Metadata: map[string]any{
			"endpointName": endpoint.Name,
			"subject":      eventCtx.Subject,
		},
	}

	adapter, ok := d.adapters.Lookup(endpoint.Type)
	send := func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("adapter panicked: %v", r)
			}
		}()
		if !ok {
			return provider.Skipf("no adapter registered for channel %q", endpoint.Type)
		}
		msg, err := d.builder.Render(kind, eventCtx, adapter.Shape(), endpoint.Config)
		if err != nil {
			return provider.Skip("message could not be rendered", err)
		}
		return adapter.Send(ctx, endpoint.Config, msg)
	}

	res.Result = d.delivery.Deliver(ctx, target, send, override)
	return res
}
