package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/service"
)

func TestEventFlagsBuild(t *testing.T) {
	t.Parallel()

	f := eventFlags{
		kind:          "Media_Available",
		subject:       " Dune ",
		severity:      "WARNING",
		users:         []string{"u-1", "u-2"},
		noGlobal:      true,
		maxRetries:    3,
		baseBackoffMs: -1,
	}

	kind, eventCtx, opts, err := f.build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if kind != domain.EventMediaAvailable {
		t.Fatalf("kind = %s, want media_available", kind)
	}
	if eventCtx.Subject != "Dune" || eventCtx.Severity != domain.SeverityWarning {
		t.Fatalf("context = %+v", eventCtx)
	}
	if opts.IncludeGlobalEndpoints == nil || *opts.IncludeGlobalEndpoints {
		t.Fatal("IncludeGlobalEndpoints should be false")
	}
	if opts.MaxRetries == nil || *opts.MaxRetries != 3 {
		t.Fatalf("MaxRetries = %v, want 3", opts.MaxRetries)
	}
	if opts.BaseBackoffMs != nil {
		t.Fatalf("BaseBackoffMs = %v, want nil", *opts.BaseBackoffMs)
	}

	delivery := service.DeliveryOptionsFromMessage(opts)
	if delivery.IncludeGlobalEndpoints || len(delivery.TargetUserIDs) != 2 {
		t.Fatalf("delivery options = %+v", delivery)
	}
}

func TestEventFlagsBuildRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []eventFlags{
		{kind: "nope", subject: "x", maxRetries: -1, baseBackoffMs: -1},
		{kind: "media_pending", subject: " ", maxRetries: -1, baseBackoffMs: -1},
		{kind: "media_pending", subject: "x", severity: "loud", maxRetries: -1, baseBackoffMs: -1},
		{kind: "media_pending", subject: "x", maxRetries: 11, baseBackoffMs: -1},
	}
	for _, f := range tests {
		if _, _, _, err := f.build(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("build(%+v) error = %v, want ErrValidation", f, err)
		}
	}
}

func TestReportFanout(t *testing.T) {
	t.Parallel()

	msg := "Discord webhook URL is not configured"
	var buf bytes.Buffer
	err := reportFanout(&buf, service.FanoutResult{
		Eligible:  2,
		Delivered: 1,
		Results: []service.EndpointResult{
			{EndpointID: "e-1", EndpointName: "ops", EndpointType: domain.ChannelSlack, Result: domain.DeliveryResult{Status: domain.DeliverySuccess, Attempts: 1}},
			{EndpointID: "e-2", EndpointType: domain.ChannelDiscord, Result: domain.DeliveryResult{Status: domain.DeliverySkipped, Attempts: 1, Error: &msg}},
		},
	})
	if err != nil {
		t.Fatalf("reportFanout() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ops", "e-2", "skipped", msg, "delivered 1/2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReportFanoutNoTargets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := reportFanout(&buf, service.FanoutResult{}); !errors.Is(err, errNoTargets) {
		t.Fatalf("reportFanout() error = %v, want errNoTargets", err)
	}
	if !strings.Contains(buf.String(), "delivered 0/0") {
		t.Fatalf("output = %q", buf.String())
	}
}
