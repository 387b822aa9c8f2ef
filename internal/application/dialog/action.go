package dialog

// ActionKind discriminates which kind of on-screen control fired.
type ActionKind string

const (
	// ActionStart is the conversation entry command.
	ActionStart ActionKind = "START"
	// ActionText is free-form text input.
	ActionText ActionKind = "TEXT"
	// ActionSelect is an inline control press; Value carries the control id
	// or the selected item.
	ActionSelect ActionKind = "SELECT"
	// ActionBack returns to the previous screen.
	ActionBack ActionKind = "BACK"
	// ActionReset abandons the flow and returns to the root menu.
	ActionReset ActionKind = "RESET"
)

// From identifies the acting user as reported by the transport.
type From struct {
	ID        int64
	FirstName string
	Username  string
}

// Action is a single inbound event for one conversation.
type Action struct {
	Kind  ActionKind
	Value string
	From  From
}
