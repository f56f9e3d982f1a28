package state

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Step string `json:"step"`
	Name string `json:"name,omitempty"`
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[form]()

	_, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	active, err := InProgress[form](ctx, s, 1)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, s.Put(ctx, 1, form{Step: "username"}))
	got, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "username", got.Step)
	active, err = InProgress[form](ctx, s, 1)
	require.NoError(t, err)
	assert.True(t, active)

	got.Step = "mutated"
	again, _, _ := s.Get(ctx, 1)
	assert.Equal(t, "username", again.Step, "Get must hand out copies")

	require.NoError(t, s.Delete(ctx, 1))
	require.NoError(t, s.Delete(ctx, 1))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[form]()

	var wg sync.WaitGroup
	for id := int64(1); id <= 50; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = s.Put(ctx, id, form{Step: "email", Name: "u"})
			_ = s.Delete(ctx, id)
			_ = s.Put(ctx, id, form{Step: "nickname"})
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	got, ok, _ := s.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, form{Step: "nickname"}, got)
}

func TestInProgressNilStore(t *testing.T) {
	active, err := InProgress[form](context.Background(), nil, 1)
	require.NoError(t, err)
	assert.False(t, active)
}
