package message

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestBuilder() *Builder {
	return NewBuilderWithClock(func() time.Time { return fixedNow })
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	got := b.BuildSummary(domain.EventIssueCreated, domain.EventContext{
		Subject: "Playback issue on Dune",
		Message: "Audio is out of sync",
		Actor:   "alice",
		Fields:  []domain.Field{{Name: "Issue Type", Value: "Audio"}},
		URL:     "https://portal.example/issues/7",
	})

	want := "Playback issue on Dune\n\nAudio is out of sync\n\nIssue Type: Audio\n\nBy: alice\n\nhttps://portal.example/issues/7"
	if got != want {
		t.Fatalf("BuildSummary() = %q, want %q", got, want)
	}
}

func TestBuildSummaryFallsBackToEventTitle(t *testing.T) {
	t.Parallel()

	got := newTestBuilder().BuildSummary(domain.EventSystemServiceUnreachable, domain.EventContext{})
	if got != "System Alert: Service Unreachable" {
		t.Fatalf("BuildSummary() = %q", got)
	}
}

func TestBuildSummaryClampsLength(t *testing.T) {
	t.Parallel()

	got := newTestBuilder().BuildSummary(domain.EventMediaAvailable, domain.EventContext{
		Subject: "x",
		Message: strings.Repeat("ğ", 3*MaxTextLength),
	})
	if n := len([]rune(got)); n != MaxTextLength {
		t.Fatalf("summary length = %d runes, want %d", n, MaxTextLength)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatal("clamped summary should end with an ellipsis")
	}
}

func TestBuildSummaryIsDeterministic(t *testing.T) {
	t.Parallel()

	ctx := domain.EventContext{Subject: "s", Message: "m", Fields: []domain.Field{{Name: "a", Value: "b"}}}
	first := NewBuilder().BuildSummary(domain.EventMediaPending, ctx)
	second := NewBuilderWithClock(func() time.Time { return time.Unix(0, 0) }).BuildSummary(domain.EventMediaPending, ctx)
	if first != second {
		t.Fatalf("summary depends on clock: %q vs %q", first, second)
	}
}

func TestBuildRichEmbed(t *testing.T) {
	t.Parallel()

	embed := newTestBuilder().BuildRichEmbed(domain.EventMediaAvailable, domain.EventContext{
		Subject:  "Dune (2021)",
		Message:  "Now available",
		ImageURL: "https://img.example/dune.jpg",
		Fields: []domain.Field{
			{Name: "Requested By", Value: "bob", Inline: true},
			{Name: "Empty", Value: " "},
		},
	})

	if embed.Title != "Dune (2021)" {
		t.Fatalf("Title = %q", embed.Title)
	}
	if embed.Color != colorSuccess {
		t.Fatalf("Color = %#x, want %#x", embed.Color, colorSuccess)
	}
	if embed.Footer != "Media Available" {
		t.Fatalf("Footer = %q", embed.Footer)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Name != "Requested By" || !embed.Fields[0].Inline {
		t.Fatalf("Fields = %+v", embed.Fields)
	}
}

func TestBuildRichEmbedSeverityColor(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	if got := b.BuildRichEmbed(domain.EventSystemServiceUnreachable, domain.EventContext{Subject: "x"}).Color; got != colorCritical {
		t.Fatalf("unreachable color = %#x, want %#x", got, colorCritical)
	}
	if got := b.BuildRichEmbed(domain.EventMediaAvailable, domain.EventContext{Subject: "x", Severity: domain.SeverityWarning}).Color; got != colorWarning {
		t.Fatalf("explicit warning color = %#x, want %#x", got, colorWarning)
	}
}

func TestBuildWebhookPayloadDefault(t *testing.T) {
	t.Parallel()

	payload, err := newTestBuilder().BuildWebhookPayload(domain.EventSystemServiceUnreachable, domain.EventContext{
		Subject: "Radarr unreachable",
		Message: "connection refused",
		Extra:   map[string]string{"service": "radarr"},
	}, "")
	if err != nil {
		t.Fatalf("BuildWebhookPayload() error = %v", err)
	}

	if payload["notification_type"] != "system_alert_service_unreachable" {
		t.Fatalf("notification_type = %v", payload["notification_type"])
	}
	if payload["severity"] != "critical" {
		t.Fatalf("severity = %v", payload["severity"])
	}
	if payload["sent_at"] != "2026-03-01T10:00:00Z" {
		t.Fatalf("sent_at = %v", payload["sent_at"])
	}
	extra, ok := payload["extra"].(map[string]any)
	if !ok || extra["service"] != "radarr" {
		t.Fatalf("extra = %v", payload["extra"])
	}
	if _, ok := payload["image"]; ok {
		t.Fatal("empty image should be omitted")
	}
}

func TestBuildWebhookPayloadTemplate(t *testing.T) {
	t.Parallel()

	template := `{"text":"{{event}}: {{subject}}","meta":{"svc":"{{service}}","missing":"{{nope}}"},"tags":["{{severity}}",1]}`
	want := map[string]any{
		"text": "System Alert: Service Unreachable: Sonarr down",
		"meta": map[string]any{"svc": "sonarr", "missing": ""},
		"tags": []any{"critical", float64(1)},
	}

	b := newTestBuilder()
	ctx := domain.EventContext{Subject: "Sonarr down", Extra: map[string]string{"service": "sonarr"}}

	got, err := b.BuildWebhookPayload(domain.EventSystemServiceUnreachable, ctx, template)
	if err != nil {
		t.Fatalf("BuildWebhookPayload() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %#v, want %#v", got, want)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(template))
	got, err = b.BuildWebhookPayload(domain.EventSystemServiceUnreachable, ctx, encoded)
	if err != nil {
		t.Fatalf("BuildWebhookPayload(base64) error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("base64 payload = %#v, want %#v", got, want)
	}
}

func TestBuildWebhookPayloadInvalidTemplate(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	for _, template := range []string{"{not json", `["array"]`} {
		_, err := b.BuildWebhookPayload(domain.EventMediaPending, domain.EventContext{Subject: "x"}, template)
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Fatalf("template %q error = %v, want ErrInvalidTemplate", template, err)
		}
	}
}

func TestRenderByShape(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	ctx := domain.EventContext{Subject: "Hello"}

	text, err := b.Render(domain.EventTestNotification, ctx, ShapeText, nil)
	if err != nil {
		t.Fatalf("Render(text) error = %v", err)
	}
	if text.Embed != nil || text.Payload != nil || text.Text != "Hello" || text.Subject != "Hello" {
		t.Fatalf("text message = %+v", text)
	}

	embed, err := b.Render(domain.EventTestNotification, ctx, ShapeEmbed, nil)
	if err != nil {
		t.Fatalf("Render(embed) error = %v", err)
	}
	if embed.Embed == nil || embed.Embed.Title != "Hello" {
		t.Fatalf("embed message = %+v", embed)
	}

	payload, err := b.Render(domain.EventTestNotification, ctx, ShapePayload, map[string]string{
		TemplateConfigKey: `{"t":"{{notification_type}}"}`,
	})
	if err != nil {
		t.Fatalf("Render(payload) error = %v", err)
	}
	if payload.Payload["t"] != "test_notification" {
		t.Fatalf("payload message = %+v", payload.Payload)
	}

	if _, err := b.Render(domain.EventTestNotification, ctx, Shape("carrier-pigeon"), nil); err == nil {
		t.Fatal("expected error for unknown shape")
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "hello", max: 10, want: "hello"},
		{in: "hello", max: 5, want: "hello"},
		{in: "hello", max: 4, want: "hel…"},
		{in: "hello", max: 1, want: "…"},
		{in: "hello", max: 0, want: ""},
		{in: "ğğğ", max: 2, want: "ğ…"},
	}

	for _, tt := range tests {
		if got := Clamp(tt.in, tt.max); got != tt.want {
			t.Fatalf("Clamp(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
