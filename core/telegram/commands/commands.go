package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Sudo restricts the command to users on the sudoers list and hides it from the menu.
	Sudo    bool
	Hidden  bool
	Aliases []string
}
