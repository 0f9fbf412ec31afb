package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"Sentinela/internal/ports"
)

// Publisher posts thread parts to a Telegram chat, each replying to the previous message.
type Publisher struct {
	bot  *tele.Bot
	chat chatRecipient
}

var _ ports.PublishEndpoint = (*Publisher)(nil)

// chatRecipient accepts numeric chat ids and @channel usernames alike.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// NewPublisher builds an offline bot (no getMe round trip) bound to one chat.
func NewPublisher(apiURL, botToken, chatID string, client *http.Client) (*Publisher, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram publisher misconfigured")
	}
	if client == nil {
		client = http.DefaultClient
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   botToken,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new bot: %w", err)
	}
	return &Publisher{bot: bot, chat: chatRecipient(chatID)}, nil
}

// Submit sends text and returns the message id; parentID makes it a reply.
func (p *Publisher) Submit(ctx context.Context, text, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts := &tele.SendOptions{}
	if parentID != "" {
		id, err := strconv.Atoi(parentID)
		if err != nil {
			return "", fmt.Errorf("parse parent id %q: %w", parentID, err)
		}
		opts.ReplyTo = &tele.Message{ID: id}
	}

	msg, err := p.bot.Send(p.chat, text, opts)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}
