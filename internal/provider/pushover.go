package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const (
	defaultPushoverURL = "https://api.pushover.net"
	pushoverMaxMessage = 1024
)

type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// PushoverAdapter sends with an application token and user key pair.
type PushoverAdapter struct {
	client *resty.Client
}

func NewPushoverAdapter(client *resty.Client) *PushoverAdapter {
	return &PushoverAdapter{client: ensureClient(client)}
}

func (a *PushoverAdapter) Type() domain.ChannelType { return domain.ChannelPushover }

func (a *PushoverAdapter) Shape() message.Shape { return message.ShapeText }

func (a *PushoverAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	appToken, err := requireValue(config, "accessToken", "Pushover application token")
	if err != nil {
		return err
	}
	userKey, err := requireValue(config, "userToken", "Pushover user key")
	if err != nil {
		return err
	}
	apiURL, err := optionalURL(config, "apiUrl", "Pushover API URL", defaultPushoverURL)
	if err != nil {
		return err
	}
	priority, err := optionalInt(config, "priority", "Pushover priority", pushoverPriority(msg.Severity), -2, 1)
	if err != nil {
		return err
	}

	form := map[string]string{
		"token":    appToken,
		"user":     userKey,
		"title":    msg.Subject,
		"message":  message.Clamp(msg.Text, pushoverMaxMessage),
		"priority": strconv.Itoa(priority),
	}
	if sound := configValue(config, "sound"); sound != "" {
		form["sound"] = sound
	}

	response, err := execute(ctx, a.client.R().SetFormData(form), http.MethodPost, joinURL(apiURL, "1", "messages.json"))
	if err != nil {
		return err
	}

	var parsed pushoverResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return &ProviderError{StatusCode: response.StatusCode(), Message: "malformed pushover response", Cause: err}
	}
	if parsed.Status != 1 {
		return &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    "pushover rejected message: " + strings.Join(parsed.Errors, "; "),
		}
	}
	return nil
}

func pushoverPriority(severity domain.Severity) int {
	if severity == domain.SeverityCritical {
		return 1
	}
	return 0
}
