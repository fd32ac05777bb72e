package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()

	s.Put(KeyAccessToken, "tok-123")

	v, ok := s.Get(KeyAccessToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-123", v)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	v, ok := s.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()

	s.Put(KeyRefreshToken, "first")
	s.Put(KeyRefreshToken, "second")

	v, ok := s.Get(KeyRefreshToken)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestMemoryStoreRemove(t *testing.T) {
	s := NewMemoryStore()

	s.Put(KeyState, "abc")
	s.Remove(KeyState)

	_, ok := s.Get(KeyState)
	assert.False(t, ok)

	// Removing an absent key is a no-op
	s.Remove(KeyState)
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()

	s.Put(KeyAccessToken, "a")
	s.Put(KeyRefreshToken, "b")
	s.Put(KeyIDToken, "c")

	s.Clear()

	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyIDToken} {
		_, ok := s.Get(key)
		assert.False(t, ok, "key %s survived Clear", key)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Put(KeyAccessToken, "tok")
			s.Get(KeyAccessToken)
			s.Remove(KeyScope)
		}()
	}
	wg.Wait()

	v, ok := s.Get(KeyAccessToken)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}
