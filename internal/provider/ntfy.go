package provider

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const defaultNtfyURL = "https://ntfy.sh"

// NtfyAdapter publishes to an ntfy topic, optionally with token or basic auth.
type NtfyAdapter struct {
	client *resty.Client
}

func NewNtfyAdapter(client *resty.Client) *NtfyAdapter {
	return &NtfyAdapter{client: ensureClient(client)}
}

func (a *NtfyAdapter) Type() domain.ChannelType { return domain.ChannelNtfy }

func (a *NtfyAdapter) Shape() message.Shape { return message.ShapeText }

func (a *NtfyAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	serverURL, err := optionalURL(config, "url", "ntfy server URL", defaultNtfyURL)
	if err != nil {
		return err
	}
	topic, err := requireValue(config, "topic", "ntfy topic")
	if err != nil {
		return err
	}
	priority, err := optionalInt(config, "priority", "ntfy priority", ntfyPriority(msg.Severity), 1, 5)
	if err != nil {
		return err
	}

	req := a.client.R().
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetHeader("Title", msg.Subject).
		SetHeader("Priority", strconv.Itoa(priority)).
		SetHeader("Tags", msg.Kind.String()).
		SetBody(msg.Text)

	if msg.Embed != nil && msg.Embed.URL != "" {
		req.SetHeader("Click", msg.Embed.URL)
	}

	token := configValue(config, "token")
	username := configValue(config, "username")
	switch {
	case token != "":
		req.SetAuthToken(token)
	case username != "":
		password, err := requireValue(config, "password", "ntfy password")
		if err != nil {
			return err
		}
		req.SetBasicAuth(username, password)
	}

	_, err = execute(ctx, req, http.MethodPost, joinURL(serverURL, topic))
	return err
}

func ntfyPriority(severity domain.Severity) int {
	switch severity {
	case domain.SeverityCritical:
		return 5
	case domain.SeverityWarning:
		return 4
	}
	return 3
}
