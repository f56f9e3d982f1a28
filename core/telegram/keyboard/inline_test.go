package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineLayout(t *testing.T) {
	m := Inline(
		Row(Button{Text: "Yes", Unique: "confirm"}, Button{Text: "No", Unique: "cancel"}),
		Row(Button{Text: "Help", Unique: "help", Data: "1"}),
	)
	require.Len(t, m.InlineKeyboard, 2)
	require.Len(t, m.InlineKeyboard[0], 2)
	assert.Equal(t, "confirm", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "cancel", m.InlineKeyboard[0][1].Unique)
	assert.Equal(t, "Help", m.InlineKeyboard[1][0].Text)
	assert.Equal(t, "1", m.InlineKeyboard[1][0].Data)
}
