package dialog

import (
	"github.com/stroyrent/rentbot/internal/application/payment"
	"github.com/stroyrent/rentbot/internal/domain/session"
)

// Control is one inline button. ID comes back as the Value of an
// ActionSelect.
type Control struct {
	ID    string
	Label string
}

// Prompt is what the transport should put on screen after a transition.
type Prompt struct {
	State    session.State
	Text     string
	Note     string
	Controls [][]Control
	// Calendar asks the transport to attach a date picker.
	Calendar bool
	// Invoice asks the transport to issue an external charge request,
	// replacing any previously issued invoice message for the same request.
	Invoice *payment.Invoice
}

func row(controls ...Control) []Control { return controls }

func backRow() []Control {
	return row(Control{ID: "back", Label: "⬅️ Назад"})
}
