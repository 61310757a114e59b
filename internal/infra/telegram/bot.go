package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

type CommandUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Command   string
	Args      string
}

type TextUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	UserID     int64
	Username   string
	Data       string
}

type PreCheckoutUpdate struct {
	QueryID  string
	UserID   int64
	Currency string
	Total    int
	Payload  string
}

type PaymentUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Currency string
	Total    int
	Payload  string
	ChargeID string
}

type Handlers struct {
	OnCommand     func(context.Context, CommandUpdate) error
	OnText        func(context.Context, TextUpdate) error
	OnCallback    func(context.Context, CallbackUpdate) error
	OnPreCheckout func(context.Context, PreCheckoutUpdate) error
	OnPayment     func(context.Context, PaymentUpdate) error
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.PreCheckoutQuery != nil && handlers.OnPreCheckout != nil {
				err := handlers.OnPreCheckout(ctx, PreCheckoutUpdate{
					QueryID:  update.PreCheckoutQuery.ID,
					UserID:   update.PreCheckoutQuery.From.ID,
					Currency: update.PreCheckoutQuery.Currency,
					Total:    update.PreCheckoutQuery.TotalAmount,
					Payload:  update.PreCheckoutQuery.InvoicePayload,
				})
				if err != nil {
					return err
				}
				continue
			}

			if update.Message != nil && update.Message.From != nil {
				if update.Message.SuccessfulPayment != nil && handlers.OnPayment != nil {
					payment := update.Message.SuccessfulPayment
					err := handlers.OnPayment(ctx, PaymentUpdate{
						ChatID:   update.Message.Chat.ID,
						UserID:   update.Message.From.ID,
						Username: update.Message.From.UserName,
						Currency: payment.Currency,
						Total:    payment.TotalAmount,
						Payload:  payment.InvoicePayload,
						ChargeID: payment.TelegramPaymentChargeID,
					})
					if err != nil {
						return err
					}
					continue
				}

				if update.Message.IsCommand() && handlers.OnCommand != nil {
					err := handlers.OnCommand(ctx, CommandUpdate{
						ChatID:    update.Message.Chat.ID,
						UserID:    update.Message.From.ID,
						Username:  update.Message.From.UserName,
						FirstName: update.Message.From.FirstName,
						LastName:  update.Message.From.LastName,
						Command:   update.Message.Command(),
						Args:      update.Message.CommandArguments(),
					})
					if err != nil {
						return err
					}
					continue
				}

				text := strings.TrimSpace(update.Message.Text)
				if text != "" && handlers.OnText != nil {
					err := handlers.OnText(ctx, TextUpdate{
						ChatID:    update.Message.Chat.ID,
						UserID:    update.Message.From.ID,
						Username:  update.Message.From.UserName,
						FirstName: update.Message.From.FirstName,
						LastName:  update.Message.From.LastName,
						Text:      text,
					})
					if err != nil {
						return err
					}
				}
			}

			if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
				chatID := int64(0)
				if update.CallbackQuery.Message != nil {
					chatID = update.CallbackQuery.Message.Chat.ID
				}
				err := handlers.OnCallback(ctx, CallbackUpdate{
					CallbackID: update.CallbackQuery.ID,
					ChatID:     chatID,
					UserID:     update.CallbackQuery.From.ID,
					Username:   update.CallbackQuery.From.UserName,
					Data:       update.CallbackQuery.Data,
				})
				if err != nil {
					return err
				}
			}
		}
	}
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}

// AnswerPreCheckout confirms or rejects a pre-checkout query. Telegram
// requires an answer within ten seconds or the payment fails.
func (b *Bot) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(queryID) == "" {
		return fmt.Errorf("pre-checkout query id is required")
	}

	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer pre-checkout query: %w", err)
	}

	_ = ctx
	return nil
}

// IsChannelMember reports whether the user currently belongs to the
// channel. channel is either "@username" or a numeric chat id.
func (b *Bot) IsChannelMember(ctx context.Context, channel string, userID int64) (bool, error) {
	if b == nil || b.api == nil {
		return false, fmt.Errorf("telegram bot is not initialized")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" || userID <= 0 {
		return false, fmt.Errorf("invalid channel membership lookup")
	}

	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if strings.HasPrefix(channel, "@") {
		cfg.SuperGroupUsername = channel
	} else {
		chatID, err := strconv.ParseInt(channel, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid channel id %q", channel)
		}
		cfg.ChatID = chatID
	}

	member, err := b.api.GetChatMember(cfg)
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}

	_ = ctx
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	default:
		return false, nil
	}
}

// CreateInvoiceLink calls the createInvoiceLink Bot API method, which the
// library does not wrap yet, and returns the payment URL. An empty
// provider token with the XTR currency produces a Telegram Stars invoice.
func (b *Bot) CreateInvoiceLink(ctx context.Context, title, description, payload string, amount int) (string, error) {
	if b == nil || b.api == nil {
		return "", fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(payload) == "" || amount <= 0 {
		return "", fmt.Errorf("invalid invoice payload")
	}

	prices, err := json.Marshal([]map[string]any{{"label": title, "amount": amount}})
	if err != nil {
		return "", fmt.Errorf("marshal invoice prices: %w", err)
	}

	params := tgbotapi.Params{
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    "XTR",
		"prices":      string(prices),
	}

	resp, err := b.api.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("create invoice link: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invoice link: %w", err)
	}

	_ = ctx
	return link, nil
}
