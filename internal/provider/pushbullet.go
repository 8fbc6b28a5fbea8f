package provider

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const defaultPushbulletURL = "https://api.pushbullet.com"

type pushbulletRequest struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	ChannelTag string `json:"channel_tag,omitempty"`
}

// PushbulletAdapter creates a note push with an access token.
type PushbulletAdapter struct {
	client *resty.Client
}

func NewPushbulletAdapter(client *resty.Client) *PushbulletAdapter {
	return &PushbulletAdapter{client: ensureClient(client)}
}

func (a *PushbulletAdapter) Type() domain.ChannelType { return domain.ChannelPushbullet }

func (a *PushbulletAdapter) Shape() message.Shape { return message.ShapeText }

func (a *PushbulletAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	token, err := requireValue(config, "accessToken", "Pushbullet access token")
	if err != nil {
		return err
	}
	apiURL, err := optionalURL(config, "apiUrl", "Pushbullet API URL", defaultPushbulletURL)
	if err != nil {
		return err
	}

	body := pushbulletRequest{
		Type:       "note",
		Title:      msg.Subject,
		Body:       msg.Text,
		ChannelTag: configValue(config, "channelTag"),
	}

	_, err = execute(ctx, a.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Access-Token", token).
		SetBody(body), http.MethodPost, joinURL(apiURL, "v2", "pushes"))
	return err
}
