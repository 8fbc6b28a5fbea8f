package provider

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const (
	discordMaxFields          = 25
	discordMaxFieldValue      = 1024
	discordMaxDescriptionSize = 4096
)

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Author      *discordEmbedAuthor `json:"author,omitempty"`
	Image       *discordEmbedImage  `json:"image,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

type discordEmbedAuthor struct {
	Name string `json:"name"`
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordRequest struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []discordEmbed `json:"embeds"`
}

// DiscordAdapter posts embeds to a Discord webhook.
type DiscordAdapter struct {
	client *resty.Client
}

func NewDiscordAdapter(client *resty.Client) *DiscordAdapter {
	return &DiscordAdapter{client: ensureClient(client)}
}

func (a *DiscordAdapter) Type() domain.ChannelType { return domain.ChannelDiscord }

func (a *DiscordAdapter) Shape() message.Shape { return message.ShapeEmbed }

func (a *DiscordAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	webhookURL, err := requireURL(config, "webhookUrl", "Discord webhook URL")
	if err != nil {
		return err
	}

	body := discordRequest{
		Username:  configValue(config, "username"),
		AvatarURL: configValue(config, "avatarUrl"),
		Embeds:    []discordEmbed{toDiscordEmbed(msg)},
	}

	_, err = execute(ctx, a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body), http.MethodPost, webhookURL)
	return err
}

func toDiscordEmbed(msg message.Message) discordEmbed {
	embed := msg.Embed
	if embed == nil {
		return discordEmbed{
			Title:       msg.Subject,
			Description: message.Clamp(msg.Text, discordMaxDescriptionSize),
		}
	}

	out := discordEmbed{
		Title:       embed.Title,
		Description: message.Clamp(embed.Description, discordMaxDescriptionSize),
		URL:         embed.URL,
		Color:       embed.Color,
	}
	if embed.Author != "" {
		out.Author = &discordEmbedAuthor{Name: embed.Author}
	}
	if embed.ImageURL != "" {
		out.Image = &discordEmbedImage{URL: embed.ImageURL}
	}
	if embed.Footer != "" {
		out.Footer = &discordEmbedFooter{Text: embed.Footer}
	}
	for i, f := range embed.Fields {
		if i == discordMaxFields {
			break
		}
		out.Fields = append(out.Fields, discordEmbedField{
			Name:   f.Name,
			Value:  message.Clamp(f.Value, discordMaxFieldValue),
			Inline: f.Inline,
		})
	}
	return out
}
