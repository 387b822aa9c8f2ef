package dialog

import (
	"context"

	"github.com/stroyrent/rentbot/internal/domain/session"
)

// RecoveryKind names one recovery effect.
type RecoveryKind string

const (
	// RecoverDeleteMessage removes the stale on-screen message.
	RecoverDeleteMessage RecoveryKind = "DELETE_MESSAGE"
	// RecoverResetSession drops the navigation stack and scoped data.
	RecoverResetSession RecoveryKind = "RESET_SESSION"
	// RecoverNotify tells the user the flow restarted.
	RecoverNotify RecoveryKind = "NOTIFY"
)

// RecoveryAction is one effect to attempt during session recovery.
type RecoveryAction struct {
	Kind RecoveryKind
	Ref  string
	Text string
}

// Messenger is the transport surface recovery needs.
type Messenger interface {
	DeleteMessage(ctx context.Context, conversationID int64, messageRef string) error
	SendText(ctx context.Context, conversationID int64, text string) error
}

// PlanRecovery returns the effects to run when a conversation reference has
// gone stale. The plan is data, not behavior: each effect is attempted
// independently, so a failed message deletion never blocks the session
// reset or the user notification.
func PlanRecovery(staleRef string) []RecoveryAction {
	return []RecoveryAction{
		{Kind: RecoverDeleteMessage, Ref: staleRef},
		{Kind: RecoverResetSession},
		{Kind: RecoverNotify, Text: "Диалог устарел, начнём заново."},
	}
}

// Recover executes the recovery plan for a conversation and returns the
// root prompt to display. Every effect is best-effort; failures are logged
// and never propagate past this boundary.
func (m *Machine) Recover(ctx context.Context, conversationID int64, staleRef string, msgr Messenger) *Prompt {
	for _, act := range PlanRecovery(staleRef) {
		var err error
		switch act.Kind {
		case RecoverDeleteMessage:
			if act.Ref != "" {
				err = msgr.DeleteMessage(ctx, conversationID, act.Ref)
			}
		case RecoverResetSession:
			_, err = m.sessions.Update(ctx, conversationID, func(sess *session.Session) {
				sess.ResetNav()
			})
		case RecoverNotify:
			err = msgr.SendText(ctx, conversationID, act.Text)
		}
		if err != nil {
			m.logger.Warn().Err(err).
				Int64("conversation_id", conversationID).
				Str("effect", string(act.Kind)).
				Msg("recovery effect failed")
		}
	}
	return &Prompt{State: session.StateRoot, Text: rootText, Controls: rootControls()}
}
