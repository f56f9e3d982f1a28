package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepNames(t *testing.T) {
	for s, name := range stepNames {
		got, ok := ParseStep(name)
		require.True(t, ok, name)
		assert.Equal(t, s, got)
		assert.Equal(t, name, s.String())
		assert.NotEmpty(t, s.Flow())
	}
	_, ok := ParseStep("register_confirm")
	assert.False(t, ok)
	assert.False(t, Step(0).Valid())
}

func TestConversationJSON(t *testing.T) {
	in := Conversation{Step: StepLoginPassword, Username: "alice", PromptMessageID: 3}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"loginPassword","username":"alice","prompt_message_id":3}`, string(raw))

	var out Conversation
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"step":"teleport"}`), &out))
}

func TestParseTrigger(t *testing.T) {
	tr, ok := ParseTrigger("confirm")
	assert.True(t, ok)
	assert.Equal(t, TriggerConfirm, tr)
	_, ok = ParseTrigger("add_pages")
	assert.False(t, ok)
}

func TestWelcomeToastsFitCallbackAnswer(t *testing.T) {
	long := strings.Repeat("ж", 500)
	for _, text := range []string{toastWelcome(long), toastWelcomeBack(long)} {
		assert.LessOrEqual(t, utf8.RuneCountInString(text), 200)
		assert.True(t, strings.HasSuffix(text, "…!"), text)
	}
	assert.Equal(t, "✅ Welcome, Ali!", toastWelcome("Ali"))
}
