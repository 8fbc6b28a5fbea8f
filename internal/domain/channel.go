package domain

import (
	"fmt"
	"strings"
)

// ChannelType identifies the delivery medium of an endpoint.
type ChannelType string

const (
	ChannelDiscord    ChannelType = "discord"
	ChannelTelegram   ChannelType = "telegram"
	ChannelEmail      ChannelType = "email"
	ChannelWebhook    ChannelType = "webhook"
	ChannelSlack      ChannelType = "slack"
	ChannelGotify     ChannelType = "gotify"
	ChannelNtfy       ChannelType = "ntfy"
	ChannelPushbullet ChannelType = "pushbullet"
	ChannelPushover   ChannelType = "pushover"
)

var channelTypes = []ChannelType{
	ChannelDiscord,
	ChannelTelegram,
	ChannelEmail,
	ChannelWebhook,
	ChannelSlack,
	ChannelGotify,
	ChannelNtfy,
	ChannelPushbullet,
	ChannelPushover,
}

func (c ChannelType) String() string { return string(c) }

func (c ChannelType) IsValid() bool {
	for _, known := range channelTypes {
		if c == known {
			return true
		}
	}
	return false
}

// ChannelTypes returns every supported channel type.
func ChannelTypes() []ChannelType {
	out := make([]ChannelType, len(channelTypes))
	copy(out, channelTypes)
	return out
}

func ParseChannelType(s string) (ChannelType, error) {
	ch := ChannelType(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel type %q", ErrValidation, s)
	}
	return ch, nil
}
