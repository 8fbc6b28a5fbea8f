package provider

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

type gotifyRequest struct {
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Priority int            `json:"priority"`
	Extras   map[string]any `json:"extras,omitempty"`
}

// GotifyAdapter pushes to a Gotify server with an application token.
type GotifyAdapter struct {
	client *resty.Client
}

func NewGotifyAdapter(client *resty.Client) *GotifyAdapter {
	return &GotifyAdapter{client: ensureClient(client)}
}

func (a *GotifyAdapter) Type() domain.ChannelType { return domain.ChannelGotify }

func (a *GotifyAdapter) Shape() message.Shape { return message.ShapeText }

func (a *GotifyAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	serverURL, err := requireURL(config, "url", "Gotify server URL")
	if err != nil {
		return err
	}
	token, err := requireValue(config, "token", "Gotify application token")
	if err != nil {
		return err
	}
	priority, err := optionalInt(config, "priority", "Gotify priority", gotifyPriority(msg.Severity), 0, 10)
	if err != nil {
		return err
	}

	body := gotifyRequest{
		Title:    msg.Subject,
		Message:  msg.Text,
		Priority: priority,
		Extras: map[string]any{
			"client::display": map[string]any{"contentType": "text/plain"},
		},
	}

	_, err = execute(ctx, a.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Gotify-Key", token).
		SetBody(body), http.MethodPost, joinURL(serverURL, "message"))
	return err
}

func gotifyPriority(severity domain.Severity) int {
	switch severity {
	case domain.SeverityCritical:
		return 8
	case domain.SeverityWarning:
		return 5
	}
	return 2
}
