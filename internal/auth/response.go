package auth

// Keyboard selects the inline buttons attached to a prompt.
type Keyboard uint8

const (
	KeyboardNone Keyboard = iota
	// KeyboardAuth offers register and login.
	KeyboardAuth
	// KeyboardConfirm offers confirm and cancel.
	KeyboardConfirm
)

// Prompt is a message to send. Text is HTML.
type Prompt struct {
	// Image is a photo reference; empty sends plain text.
	Image    string
	Text     string
	Keyboard Keyboard
	// Quote replies to the user's input message.
	Quote bool
	// Track records the sent message as the conversation's current prompt.
	Track bool
}

// Toast is a callback answer.
type Toast struct {
	Text  string
	Alert bool
}

// Outcome classifies what the machine did with an event.
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeRejected  Outcome = "rejected"
	OutcomeAborted   Outcome = "aborted"
	OutcomeCommitted Outcome = "committed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFail      Outcome = "fail"
)

// Response tells the adapter how to render one event.
type Response struct {
	Prompt *Prompt
	Toast  *Toast
	// DeleteInput removes the user's text message now.
	DeleteInput bool
	// DeleteSource removes the message carrying the pressed button now.
	DeleteSource bool
	// CleanupSource removes the message carrying the pressed button after a delay.
	CleanupSource bool
	// StalePromptID is a superseded prompt to remove; zero means none.
	StalePromptID int
	Outcome       Outcome
}
