package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-engine/internal/app"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"github.com/kursadbilgin/notify-engine/internal/service"
	"github.com/spf13/cobra"
)

// errNoTargets is returned when an event had nowhere to go.
var errNoTargets = errors.New("No target endpoints found")

type eventFlags struct {
	kind          string
	subject       string
	message       string
	severity      string
	url           string
	users         []string
	noGlobal      bool
	ignoreFilters bool
	maxRetries    int
	baseBackoffMs int
}

func (f *eventFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.kind, "kind", "", "event kind, e.g. media_available (required)")
	flags.StringVar(&f.subject, "subject", "", "event subject (required)")
	flags.StringVar(&f.message, "message", "", "event message body")
	flags.StringVar(&f.severity, "severity", "", "info, warning or critical")
	flags.StringVar(&f.url, "url", "", "link attached to the event")
	flags.StringSliceVar(&f.users, "user", nil, "target user id; repeatable")
	flags.BoolVar(&f.noGlobal, "no-global", false, "do not include global endpoints")
	flags.BoolVar(&f.ignoreFilters, "ignore-filters", false, "deliver regardless of endpoint event filters")
	flags.IntVar(&f.maxRetries, "max-retries", -1, "retry budget override (default: NOTIFY_MAX_RETRIES)")
	flags.IntVar(&f.baseBackoffMs, "base-backoff-ms", -1, "base backoff override (default: NOTIFY_BASE_BACKOFF_MS)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("subject")
}

func (f *eventFlags) build() (domain.EventKind, domain.EventContext, *queue.EventOptions, error) {
	kind, err := domain.ParseEventKind(f.kind)
	if err != nil {
		return "", domain.EventContext{}, nil, err
	}

	eventCtx := domain.EventContext{
		Subject:  strings.TrimSpace(f.subject),
		Message:  f.message,
		Severity: domain.Severity(strings.ToLower(strings.TrimSpace(f.severity))),
		URL:      strings.TrimSpace(f.url),
		Actor:    "notifyctl",
	}
	if err := eventCtx.Validate(); err != nil {
		return "", domain.EventContext{}, nil, err
	}

	includeGlobal := !f.noGlobal
	opts := &queue.EventOptions{
		IncludeGlobalEndpoints: &includeGlobal,
		TargetUserIDs:          f.users,
		IgnoreEventFilters:     f.ignoreFilters,
	}
	if f.maxRetries >= 0 {
		maxRetries := f.maxRetries
		opts.MaxRetries = &maxRetries
	}
	if f.baseBackoffMs >= 0 {
		backoff := f.baseBackoffMs
		opts.BaseBackoffMs = &backoff
	}
	if err := opts.Validate(); err != nil {
		return "", domain.EventContext{}, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return kind, eventCtx, opts, nil
}

var (
	sendFlags    eventFlags
	publishFlags eventFlags
	publishQueue string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Dispatch an event to its endpoints and wait for delivery",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, eventCtx, opts, err := sendFlags.build()
		if err != nil {
			return err
		}

		ctx, _ := observability.EnsureCorrelationID(context.Background())
		engine, err := loadEngine(ctx, app.Options{Redis: true})
		if err != nil {
			return err
		}
		defer closeEngine(engine)

		result, err := engine.Dispatcher.TriggerEvent(ctx, kind, eventCtx, service.DeliveryOptionsFromMessage(opts))
		if err != nil {
			return err
		}
		return reportFanout(cmd.OutOrStdout(), result)
	},
}

var testCmd = &cobra.Command{
	Use:   "test <endpoint-id>",
	Short: "Send a test notification to one endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, _ := observability.EnsureCorrelationID(context.Background())
		engine, err := loadEngine(ctx, app.Options{Redis: true})
		if err != nil {
			return err
		}
		defer closeEngine(engine)

		result, err := engine.Dispatcher.SendTest(ctx, args[0])
		if errors.Is(err, service.ErrNoTargets) {
			return errNoTargets
		}
		if err != nil {
			return err
		}
		return reportFanout(cmd.OutOrStdout(), result)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Queue an event for asynchronous delivery",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, eventCtx, opts, err := publishFlags.build()
		if err != nil {
			return err
		}

		ctx, correlationID := observability.EnsureCorrelationID(context.Background())
		engine, err := loadEngine(ctx, app.Options{RabbitMQ: true})
		if err != nil {
			return err
		}
		defer closeEngine(engine)

		if engine.Publisher == nil {
			return fmt.Errorf("RABBITMQ_URL is not set")
		}

		queueName := publishQueue
		if queueName == "" {
			queueName = engine.Config.EventsQueue
		}
		msg := queue.EventMessage{
			EventID:       uuid.NewString(),
			CorrelationID: correlationID,
			Kind:          kind,
			Context:       eventCtx,
			Options:       opts,
		}
		if err := engine.Publisher.Publish(ctx, queueName, msg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "queued event %s on %s\n", msg.EventID, queueName)
		return nil
	},
}

func init() {
	sendFlags.bind(sendCmd)
	publishFlags.bind(publishCmd)
	publishCmd.Flags().StringVar(&publishQueue, "queue", "", "queue name (default: EVENTS_QUEUE)")
}

// reportFanout prints per-endpoint outcomes. Zero eligible endpoints is
// reported as an error.
func reportFanout(w io.Writer, result service.FanoutResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tTYPE\tSTATUS\tATTEMPTS\tERROR")
	for _, r := range result.Results {
		errMsg := "-"
		if r.Result.Error != nil {
			errMsg = *r.Result.Error
		}
		name := r.EndpointName
		if name == "" {
			name = r.EndpointID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", name, r.EndpointType, r.Result.Status, r.Result.Attempts, errMsg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "delivered %d/%d\n", result.Delivered, result.Eligible)
	if result.Eligible == 0 {
		return errNoTargets
	}
	return nil
}
