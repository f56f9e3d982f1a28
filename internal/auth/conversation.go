package auth

import "github.com/m3rciful/diarybot/core/telegram/state"

// Conversation is the in-flight form of one user.
// Password holds plaintext only until commit and only when hashing on capture is off.
type Conversation struct {
	Step            Step   `json:"step"`
	Username        string `json:"username,omitempty"`
	Nickname        string `json:"nickname,omitempty"`
	Password        string `json:"password,omitempty"`
	PasswordHash    string `json:"password_hash,omitempty"`
	Email           string `json:"email,omitempty"`
	PromptMessageID int    `json:"prompt_message_id,omitempty"`
}

// ConversationStore keeps conversations keyed by Telegram user ID.
type ConversationStore = state.Store[Conversation]

// NewMemoryConversations returns a process-local conversation store.
func NewMemoryConversations() *state.Memory[Conversation] {
	return state.NewMemory[Conversation]()
}
