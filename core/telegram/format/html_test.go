package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; &quot;c&quot;", Escape(`a <b> & "c"`))
}

func TestSpoilerEscapesContent(t *testing.T) {
	assert.Equal(t, "<tg-spoiler>p&lt;ss&gt;!</tg-spoiler>", Spoiler("p<ss>!"))
}

func TestMention(t *testing.T) {
	assert.Equal(t, `<a href="tg://user?id=42">Al &amp; Co</a>`, Mention(42, "Al & Co"))
	assert.Equal(t, `<a href="tg://user?id=42">42</a>`, Mention(42, " "))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "••••••••", Mask("", 8))
	assert.Equal(t, "•••••••••", Mask("Secret12!", 8))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "alice", Truncate("alice", 5))
	assert.Equal(t, "ali…", Truncate("alice", 4))
	assert.Equal(t, "жж…", Truncate("жжжж", 3))
	assert.Empty(t, Truncate("alice", 0))
}
