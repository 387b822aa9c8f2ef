// Package telegram adapts the dialog machine to the Telegram Bot API. It
// serializes updates per conversation, renders prompts as inline keyboards
// and date pickers, and feeds payment events into the reconciliation
// service.
package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/go-telegram/ui/datepicker"
	"github.com/go-telegram/ui/keyboard/inline"
	"github.com/rs/zerolog"

	"github.com/stroyrent/rentbot/internal/application/dialog"
	paymentapp "github.com/stroyrent/rentbot/internal/application/payment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
)

// Config holds transport settings.
type Config struct {
	Token          string
	ProviderToken  string
	OperatorChatID int64
}

// Transport drives one bot instance.
type Transport struct {
	bot      *bot.Bot
	machine  *dialog.Machine
	payments *paymentapp.Service
	cfg      Config
	logger   zerolog.Logger

	mu         sync.Mutex
	convLocks  map[int64]*sync.Mutex
	promptIDs  map[int64]int
	invoiceIDs map[int64]int
}

func New(cfg Config, machine *dialog.Machine, payments *paymentapp.Service, logger zerolog.Logger) (*Transport, error) {
	t := &Transport{
		machine:    machine,
		payments:   payments,
		cfg:        cfg,
		logger:     logger.With().Str("service", "telegram").Logger(),
		convLocks:  make(map[int64]*sync.Mutex),
		promptIDs:  make(map[int64]int),
		invoiceIDs: make(map[int64]int),
	}
	b, err := bot.New(cfg.Token, bot.WithDefaultHandler(t.handleUpdate))
	if err != nil {
		return nil, err
	}
	t.bot = b
	return t, nil
}

// Start runs long polling until the context is cancelled.
func (t *Transport) Start(ctx context.Context) {
	t.bot.Start(ctx)
}

// convLock returns the mutex serializing actions for one conversation. The
// machine relies on at most one transition being in flight per conversation.
func (t *Transport) convLock(conversationID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.convLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		t.convLocks[conversationID] = l
	}
	return l
}

func (t *Transport) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		t.handlePrecheckout(ctx, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		t.handleSuccessfulPayment(ctx, update.Message)
	case update.Message != nil:
		t.handleMessage(ctx, update.Message)
	}
}

func (t *Transport) handleMessage(ctx context.Context, msg *models.Message) {
	chatID := msg.Chat.ID
	a := dialog.Action{Kind: dialog.ActionText, Value: msg.Text, From: fromUser(msg.From)}
	switch msg.Text {
	case "/start":
		a.Kind = dialog.ActionStart
	case "/menu", "/reset":
		a.Kind = dialog.ActionReset
	}
	t.dispatch(ctx, chatID, a)
}

func (t *Transport) onControlSelected(ctx context.Context, _ *bot.Bot, mes models.MaybeInaccessibleMessage, data []byte) {
	if mes.Message == nil {
		return
	}
	chatID := mes.Message.Chat.ID
	a := dialog.Action{Kind: dialog.ActionSelect, Value: string(data), From: chatUser(mes.Message.Chat)}
	if a.Value == "back" {
		a.Kind = dialog.ActionBack
	}
	t.dispatch(ctx, chatID, a)
}

func (t *Transport) onDateSelected(ctx context.Context, _ *bot.Bot, mes models.MaybeInaccessibleMessage, date time.Time) {
	if mes.Message == nil {
		return
	}
	t.dispatch(ctx, mes.Message.Chat.ID, dialog.Action{
		Kind:  dialog.ActionSelect,
		Value: date.Format("2006-01-02"),
		From:  chatUser(mes.Message.Chat),
	})
}

// dispatch runs one transition under the conversation lock and puts the
// resulting prompt on screen. A stale session reference triggers recovery
// instead of surfacing an error to the user.
func (t *Transport) dispatch(ctx context.Context, conversationID int64, a dialog.Action) {
	l := t.convLock(conversationID)
	l.Lock()
	defer l.Unlock()

	prompt, err := t.machine.Handle(ctx, conversationID, a)
	if err != nil {
		if fault.IsStaleSession(err) {
			prompt = t.machine.Recover(ctx, conversationID, t.lastPromptRef(conversationID), t)
		} else {
			t.logger.Error().Err(err).Int64("conversation_id", conversationID).Msg("transition failed")
			return
		}
	}
	t.renderPrompt(ctx, conversationID, prompt)
}

// renderPrompt replaces the previous on-screen prompt with a new one.
func (t *Transport) renderPrompt(ctx context.Context, chatID int64, p *dialog.Prompt) {
	t.deletePrompt(ctx, chatID)

	text := p.Text
	if p.Note != "" {
		text = p.Note + "\n\n" + text
	}

	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	switch {
	case p.Calendar:
		params.ReplyMarkup = datepicker.New(t.bot, t.onDateSelected)
	case len(p.Controls) > 0:
		kb := inline.New(t.bot, inline.NoDeleteAfterClick())
		for _, controlRow := range p.Controls {
			kb.Row()
			for _, c := range controlRow {
				kb.Button(c.Label, []byte(c.ID), t.onControlSelected)
			}
		}
		params.ReplyMarkup = kb
	}

	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		t.logger.Error().Err(err).Int64("conversation_id", chatID).Msg("send prompt failed")
		return
	}
	t.mu.Lock()
	t.promptIDs[chatID] = msg.ID
	t.mu.Unlock()

	if p.Invoice != nil {
		t.sendInvoice(ctx, chatID, p.Invoice)
	}
}

// sendInvoice issues the external charge request, replacing any still-open
// invoice message for the chat so invoices never stack.
func (t *Transport) sendInvoice(ctx context.Context, chatID int64, inv *paymentapp.Invoice) {
	t.mu.Lock()
	prevID := t.invoiceIDs[chatID]
	t.mu.Unlock()
	if prevID != 0 {
		if _, err := t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: prevID}); err != nil {
			t.logger.Warn().Err(err).Int64("conversation_id", chatID).Msg("stale invoice delete failed")
		}
	}

	msg, err := t.bot.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         inv.Title,
		Description:   inv.Description,
		Payload:       inv.Payload,
		ProviderToken: t.cfg.ProviderToken,
		Currency:      inv.Currency,
		Prices: []models.LabeledPrice{
			{Label: inv.Title, Amount: int(inv.Amount)},
		},
	})
	if err != nil {
		t.logger.Error().Err(err).Int64("conversation_id", chatID).
			Int64("request_id", inv.RequestID).Msg("send invoice failed")
		return
	}
	t.mu.Lock()
	t.invoiceIDs[chatID] = msg.ID
	t.mu.Unlock()
}

// handlePrecheckout answers the provider's pre-charge validation. Payment
// events bypass the per-conversation queue; idempotency rests on the stored
// charge id, not on conversation state.
func (t *Transport) handlePrecheckout(ctx context.Context, q *models.PreCheckoutQuery) {
	err := t.payments.Precheckout(ctx, q.InvoicePayload, int64(q.TotalAmount))
	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: err == nil}
	if err != nil {
		t.logger.Warn().Err(err).Str("payload", q.InvoicePayload).Msg("precheckout rejected")
		params.ErrorMessage = "Заявка недоступна для оплаты."
	}
	if _, err := t.bot.AnswerPreCheckoutQuery(ctx, params); err != nil {
		t.logger.Error().Err(err).Msg("precheckout answer failed")
	}
}

func (t *Transport) handleSuccessfulPayment(ctx context.Context, msg *models.Message) {
	sp := msg.SuccessfulPayment
	chatID := msg.Chat.ID
	_, err := t.payments.ConfirmCharge(ctx, sp.ProviderPaymentChargeID, sp.InvoicePayload, chatID, int64(sp.TotalAmount))
	if err != nil {
		t.logger.Error().Err(err).Str("charge_id", sp.ProviderPaymentChargeID).Msg("charge confirmation failed")
		return
	}
	t.mu.Lock()
	delete(t.invoiceIDs, chatID)
	t.mu.Unlock()
}

func (t *Transport) deletePrompt(ctx context.Context, chatID int64) {
	t.mu.Lock()
	msgID := t.promptIDs[chatID]
	delete(t.promptIDs, chatID)
	t.mu.Unlock()
	if msgID == 0 {
		return
	}
	if _, err := t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: msgID}); err != nil {
		t.logger.Debug().Err(err).Int64("conversation_id", chatID).Msg("prompt delete failed")
	}
}

func (t *Transport) lastPromptRef(chatID int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id := t.promptIDs[chatID]; id != 0 {
		return strconv.Itoa(id)
	}
	return ""
}

// NotifyOperator implements the booking notifier for the operator channel.
func (t *Transport) NotifyOperator(ctx context.Context, text string) error {
	if t.cfg.OperatorChatID == 0 {
		return nil
	}
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: t.cfg.OperatorChatID, Text: text})
	return err
}

// NotifyRequester sends a status update to a user.
func (t *Transport) NotifyRequester(ctx context.Context, conversationID int64, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: conversationID, Text: text})
	return err
}

// DeleteMessage implements dialog.Messenger for recovery.
func (t *Transport) DeleteMessage(ctx context.Context, conversationID int64, messageRef string) error {
	msgID, err := strconv.Atoi(messageRef)
	if err != nil {
		return err
	}
	_, err = t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: conversationID, MessageID: msgID})
	return err
}

// SendText implements dialog.Messenger.
func (t *Transport) SendText(ctx context.Context, conversationID int64, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: conversationID, Text: text})
	return err
}

func fromUser(u *models.User) dialog.From {
	if u == nil {
		return dialog.From{}
	}
	return dialog.From{ID: u.ID, FirstName: u.FirstName, Username: u.Username}
}

func chatUser(c models.Chat) dialog.From {
	return dialog.From{ID: c.ID, FirstName: c.FirstName, Username: c.Username}
}
