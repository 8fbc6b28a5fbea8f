package provider

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

// WebhookAdapter posts the rendered JSON payload to an arbitrary URL.
type WebhookAdapter struct {
	client *resty.Client
}

func NewWebhookAdapter(client *resty.Client) *WebhookAdapter {
	return &WebhookAdapter{client: ensureClient(client)}
}

func (a *WebhookAdapter) Type() domain.ChannelType { return domain.ChannelWebhook }

func (a *WebhookAdapter) Shape() message.Shape { return message.ShapePayload }

func (a *WebhookAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	target, err := requireURL(config, "url", "Webhook URL")
	if err != nil {
		return err
	}

	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{
			"notification_type": msg.Kind.String(),
			"subject":           msg.Subject,
			"message":           msg.Text,
		}
	}

	req := a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if auth := configValue(config, "authHeader"); auth != "" {
		req.SetHeader("Authorization", auth)
	}

	_, err = execute(ctx, req, http.MethodPost, target)
	return err
}
