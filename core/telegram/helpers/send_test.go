package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUndeletable(t *testing.T) {
	assert.False(t, IsUndeletable(nil))
	assert.True(t, IsUndeletable(errors.New("telegram: Bad Request: message to delete not found (400)")))
	assert.True(t, IsUndeletable(errors.New("telegram: Bad Request: message can't be deleted (400)")))
	assert.False(t, IsUndeletable(errors.New("telegram: Too Many Requests (429)")))
}

func TestPhotoFile(t *testing.T) {
	remote := PhotoFile("https://example.org/start.png")
	assert.Equal(t, "https://example.org/start.png", remote.FileURL)

	local := PhotoFile("assets/start.png")
	assert.Equal(t, "assets/start.png", local.FileLocal)
}

func TestMessageRef(t *testing.T) {
	id, chat := MessageRef(42, 7).MessageSig()
	assert.Equal(t, "7", id)
	assert.Equal(t, int64(42), chat)
}
