package message

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kursadbilgin/notify-engine/internal/domain"
)

// MaxTextLength is the text limit applied before handing text to adapters.
const MaxTextLength = 2000

// MaxSubjectLength bounds titles for services with short title fields.
const MaxSubjectLength = 250

// TemplateConfigKey is the endpoint config key holding a JSON payload template.
const TemplateConfigKey = "jsonPayload"

var ErrInvalidTemplate = errors.New("invalid payload template")

// Shape is the payload form an adapter consumes.
type Shape string

const (
	ShapeText    Shape = "text"
	ShapeEmbed   Shape = "embed"
	ShapePayload Shape = "payload"
)

// Embed is a channel-neutral rich message.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	ImageURL    string
	Author      string
	Fields      []domain.Field
	Footer      string
}

// Message is what an adapter sends. Subject and Text are always populated;
// Embed and Payload only for their shapes.
type Message struct {
	Kind     domain.EventKind
	Severity domain.Severity
	Subject  string
	Text     string
	Embed    *Embed
	Payload  map[string]any
}

const (
	colorInfo     = 0x6366F1
	colorWarning  = 0xF59E0B
	colorCritical = 0xEF4444
	colorSuccess  = 0x10B981
)

// Builder renders messages. now is only read for the payload sent_at field.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder that stamps payloads using now.
func NewBuilderWithClock(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Render builds the message for shape. config is the endpoint config and is
// only consulted for the payload template.
func (b *Builder) Render(kind domain.EventKind, ctx domain.EventContext, shape Shape, config map[string]string) (Message, error) {
	msg := Message{
		Kind:     kind,
		Severity: severityOf(kind, ctx),
		Subject:  Clamp(subjectOf(kind, ctx), MaxSubjectLength),
		Text:     b.BuildSummary(kind, ctx),
	}

	switch shape {
	case ShapeText:
	case ShapeEmbed:
		embed := b.BuildRichEmbed(kind, ctx)
		msg.Embed = &embed
	case ShapePayload:
		payload, err := b.BuildWebhookPayload(kind, ctx, config[TemplateConfigKey])
		if err != nil {
			return Message{}, err
		}
		msg.Payload = payload
	default:
		return Message{}, fmt.Errorf("unknown message shape %q", shape)
	}

	return msg, nil
}

// BuildSummary renders plain text, clamped to MaxTextLength.
func (b *Builder) BuildSummary(kind domain.EventKind, ctx domain.EventContext) string {
	var sb strings.Builder

	sb.WriteString(subjectOf(kind, ctx))
	if msg := strings.TrimSpace(ctx.Message); msg != "" {
		sb.WriteString("\n\n")
		sb.WriteString(msg)
	}

	if len(ctx.Fields) > 0 {
		sb.WriteString("\n")
		for _, f := range ctx.Fields {
			if strings.TrimSpace(f.Name) == "" && strings.TrimSpace(f.Value) == "" {
				continue
			}
			sb.WriteString("\n")
			sb.WriteString(strings.TrimSpace(f.Name))
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(f.Value))
		}
	}

	if actor := strings.TrimSpace(ctx.Actor); actor != "" {
		sb.WriteString("\n\nBy: ")
		sb.WriteString(actor)
	}
	if u := strings.TrimSpace(ctx.URL); u != "" {
		sb.WriteString("\n\n")
		sb.WriteString(u)
	}

	return Clamp(sb.String(), MaxTextLength)
}

// BuildRichEmbed renders an embed with a clamped description.
func (b *Builder) BuildRichEmbed(kind domain.EventKind, ctx domain.EventContext) Embed {
	fields := make([]domain.Field, 0, len(ctx.Fields))
	for _, f := range ctx.Fields {
		name := strings.TrimSpace(f.Name)
		value := strings.TrimSpace(f.Value)
		if name == "" || value == "" {
			continue
		}
		fields = append(fields, domain.Field{Name: name, Value: value, Inline: f.Inline})
	}

	return Embed{
		Title:       Clamp(subjectOf(kind, ctx), MaxSubjectLength),
		Description: Clamp(strings.TrimSpace(ctx.Message), MaxTextLength),
		URL:         strings.TrimSpace(ctx.URL),
		Color:       colorOf(kind, ctx),
		ImageURL:    strings.TrimSpace(ctx.ImageURL),
		Author:      strings.TrimSpace(ctx.Actor),
		Fields:      fields,
		Footer:      EventTitle(kind),
	}
}

// BuildWebhookPayload renders the JSON object for generic callbacks. With an
// empty template the default object is returned; otherwise {{var}}
// placeholders in the template's strings are substituted.
func (b *Builder) BuildWebhookPayload(kind domain.EventKind, ctx domain.EventContext, template string) (map[string]any, error) {
	vars := templateVars(kind, ctx, b.now().UTC().Format(time.RFC3339))

	if strings.TrimSpace(template) == "" {
		return defaultPayload(kind, ctx, vars), nil
	}

	return applyTemplate(template, vars)
}

func defaultPayload(kind domain.EventKind, ctx domain.EventContext, vars map[string]string) map[string]any {
	payload := map[string]any{
		"notification_type": kind.String(),
		"event":             vars["event"],
		"subject":           vars["subject"],
		"message":           vars["message"],
		"severity":          vars["severity"],
		"sent_at":           vars["sent_at"],
	}
	if vars["image"] != "" {
		payload["image"] = vars["image"]
	}
	if vars["url"] != "" {
		payload["url"] = vars["url"]
	}
	if vars["actor"] != "" {
		payload["actor"] = vars["actor"]
	}
	if len(ctx.Fields) > 0 {
		fields := make([]map[string]any, 0, len(ctx.Fields))
		for _, f := range ctx.Fields {
			fields = append(fields, map[string]any{"name": f.Name, "value": f.Value})
		}
		payload["fields"] = fields
	}
	if len(ctx.Extra) > 0 {
		extra := make(map[string]any, len(ctx.Extra))
		for k, v := range ctx.Extra {
			extra[k] = v
		}
		payload["extra"] = extra
	}
	return payload
}

func templateVars(kind domain.EventKind, ctx domain.EventContext, sentAt string) map[string]string {
	vars := make(map[string]string, len(ctx.Extra)+9)
	for k, v := range ctx.Extra {
		vars[k] = v
	}

	vars["notification_type"] = kind.String()
	vars["event"] = EventTitle(kind)
	vars["subject"] = strings.TrimSpace(ctx.Subject)
	vars["message"] = Clamp(strings.TrimSpace(ctx.Message), MaxTextLength)
	vars["severity"] = string(severityOf(kind, ctx))
	vars["image"] = strings.TrimSpace(ctx.ImageURL)
	vars["url"] = strings.TrimSpace(ctx.URL)
	vars["actor"] = strings.TrimSpace(ctx.Actor)
	vars["sent_at"] = sentAt

	return vars
}

// EventTitle turns a kind into a display title, e.g. "Media Available" or
// "System Alert: Service Unreachable".
func EventTitle(kind domain.EventKind) string {
	raw := kind.String()
	prefix := ""
	if rest, ok := strings.CutPrefix(raw, "system_alert_"); ok {
		prefix = "System Alert: "
		raw = rest
	}

	words := strings.Split(raw, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return prefix + strings.Join(words, " ")
}

// Clamp truncates s to at most max runes, ending in an ellipsis when cut.
func Clamp(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func subjectOf(kind domain.EventKind, ctx domain.EventContext) string {
	if subject := strings.TrimSpace(ctx.Subject); subject != "" {
		return subject
	}
	return EventTitle(kind)
}

func severityOf(kind domain.EventKind, ctx domain.EventContext) domain.Severity {
	if ctx.Severity != "" {
		return ctx.Severity
	}
	switch kind {
	case domain.EventSystemServiceUnreachable, domain.EventMediaFailed:
		return domain.SeverityCritical
	case domain.EventSystemHealthDegraded, domain.EventMediaDeclined, domain.EventIssueCreated, domain.EventIssueReopened:
		return domain.SeverityWarning
	}
	return domain.SeverityInfo
}

func colorOf(kind domain.EventKind, ctx domain.EventContext) int {
	switch severityOf(kind, ctx) {
	case domain.SeverityCritical:
		return colorCritical
	case domain.SeverityWarning:
		return colorWarning
	}
	switch kind {
	case domain.EventMediaAvailable, domain.EventIssueResolved:
		return colorSuccess
	}
	return colorInfo
}
