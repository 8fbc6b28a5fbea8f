package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const (
	slackMaxHeader  = 150
	slackMaxSection = 3000
	slackMaxFields  = 10
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	AltText  string      `json:"alt_text,omitempty"`
}

type slackRequest struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// SlackAdapter posts Block Kit messages to a Slack incoming webhook.
type SlackAdapter struct {
	client *resty.Client
}

func NewSlackAdapter(client *resty.Client) *SlackAdapter {
	return &SlackAdapter{client: ensureClient(client)}
}

func (a *SlackAdapter) Type() domain.ChannelType { return domain.ChannelSlack }

func (a *SlackAdapter) Shape() message.Shape { return message.ShapeEmbed }

func (a *SlackAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	webhookURL, err := requireURL(config, "webhookUrl", "Slack webhook URL")
	if err != nil {
		return err
	}

	_, err = execute(ctx, a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(slackRequest{Text: msg.Text, Blocks: slackBlocks(msg)}), http.MethodPost, webhookURL)
	return err
}

func slackBlocks(msg message.Message) []slackBlock {
	embed := msg.Embed
	if embed == nil {
		embed = &message.Embed{Title: msg.Subject, Description: msg.Text}
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: message.Clamp(embed.Title, slackMaxHeader)},
	}}

	if embed.Description != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: message.Clamp(embed.Description, slackMaxSection)},
		})
	}

	if len(embed.Fields) > 0 {
		fields := make([]slackText, 0, len(embed.Fields))
		for i, f := range embed.Fields {
			if i == slackMaxFields {
				break
			}
			fields = append(fields, slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", f.Name, f.Value)})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}

	if embed.ImageURL != "" {
		blocks = append(blocks, slackBlock{Type: "image", ImageURL: embed.ImageURL, AltText: embed.Title})
	}

	if embed.Footer != "" {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: embed.Footer}},
		})
	}

	return blocks
}
