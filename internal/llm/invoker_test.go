package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/logging"
)

func TestScriptedInvoker(t *testing.T) {
	ctx := context.Background()

	t.Run("responses in order", func(t *testing.T) {
		inv := NewScriptedInvoker("one", "two")

		got, err := inv.Invoke(ctx, "s1", "u1")
		require.NoError(t, err)
		assert.Equal(t, "one", got)

		got, err = inv.Invoke(ctx, "s2", "u2")
		require.NoError(t, err)
		assert.Equal(t, "two", got)

		_, err = inv.Invoke(ctx, "s3", "u3")
		assert.Error(t, err)

		assert.Equal(t, []Call{{"s1", "u1"}, {"s2", "u2"}, {"s3", "u3"}}, inv.Calls())
	})

	t.Run("per call errors", func(t *testing.T) {
		boom := errors.New("boom")
		inv := &ScriptedInvoker{Responses: []string{"a", "b"}, Errors: []error{nil, boom}}

		_, err := inv.Invoke(ctx, "", "")
		require.NoError(t, err)
		_, err = inv.Invoke(ctx, "", "")
		assert.ErrorIs(t, err, boom)
	})
}

// memoryCache is an in-process Cache for tests.
type memoryCache struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func TestCachingInvoker(t *testing.T) {
	ctx := context.Background()

	t.Run("second identical call is served from cache", func(t *testing.T) {
		inner := NewScriptedInvoker("first")
		cache := newMemoryCache()
		inv := NewCachingInvoker(inner, cache, "openai/m", time.Hour, logging.NewNop())

		a, err := inv.Invoke(ctx, "sys", "user")
		require.NoError(t, err)
		b, err := inv.Invoke(ctx, "sys", "user")
		require.NoError(t, err)

		assert.Equal(t, "first", a)
		assert.Equal(t, a, b)
		assert.Len(t, inner.Calls(), 1)
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := &ScriptedInvoker{Responses: []string{"", "ok"}, Errors: []error{errors.New("down")}}
		cache := newMemoryCache()
		inv := NewCachingInvoker(inner, cache, "ns", time.Hour, logging.NewNop())

		_, err := inv.Invoke(ctx, "s", "u")
		require.Error(t, err)

		got, err := inv.Invoke(ctx, "s", "u")
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("cache read failure falls through", func(t *testing.T) {
		inner := NewScriptedInvoker("fresh")
		cache := newMemoryCache()
		cache.getErr = errors.New("connection refused")
		inv := NewCachingInvoker(inner, cache, "ns", time.Hour, logging.NewNop())

		got, err := inv.Invoke(ctx, "s", "u")
		require.NoError(t, err)
		assert.Equal(t, "fresh", got)
	})

	t.Run("keys separate namespaces and messages", func(t *testing.T) {
		assert.Equal(t, CacheKey("a", "s", "u"), CacheKey("a", "s", "u"))
		assert.NotEqual(t, CacheKey("a", "s", "u"), CacheKey("b", "s", "u"))
		assert.NotEqual(t, CacheKey("a", "su", ""), CacheKey("a", "s", "u"))
	})
}

func TestFixtures(t *testing.T) {
	ctx := context.Background()

	t.Run("record then replay", func(t *testing.T) {
		dir := t.TempDir()
		inner := NewScriptedInvoker(`{"category":"Billing"}`)

		rec := NewRecordingInvoker(inner, dir, "groq/llama-3.1-8b-instant")
		got, err := rec.Invoke(ctx, "SYS", "USER")
		require.NoError(t, err)
		assert.Equal(t, `{"category":"Billing"}`, got)

		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.NotContains(t, filepath.Base(paths[0]), "/")

		replay, err := NewFixtureInvoker(dir)
		require.NoError(t, err)
		assert.Equal(t, 1, replay.Len())

		again, err := replay.Invoke(ctx, "SYS", "USER")
		require.NoError(t, err)
		assert.Equal(t, got, again)

		_, err = replay.Invoke(ctx, "SYS", "OTHER")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fixture not found")
	})

	t.Run("save validates", func(t *testing.T) {
		err := SaveFixture(t.TempDir(), &Fixture{System: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model")
	})

	t.Run("invalid fixture file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))

		_, err := LoadFixtures(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("empty dir", func(t *testing.T) {
		fixtures, err := LoadFixtures(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, fixtures)
	})
}

func TestGenkitInvoker(t *testing.T) {
	ctx := context.Background()

	t.Run("passes messages through to the backend", func(t *testing.T) {
		backend := NewScriptedInvoker(`{"category":"Technical"}`)
		inv := NewGenkitInvoker(ctx, "scripted", backend)

		got, err := inv.Invoke(ctx, "SYSTEM TEXT", "USER TEXT")
		require.NoError(t, err)
		assert.Equal(t, `{"category":"Technical"}`, got)

		calls := backend.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "SYSTEM TEXT", calls[0].System)
		assert.Equal(t, "USER TEXT", calls[0].User)
	})

	t.Run("backend errors propagate", func(t *testing.T) {
		backend := &ScriptedInvoker{Err: errors.New("upstream unavailable")}
		inv := NewGenkitInvoker(ctx, "failing", backend)

		_, err := inv.Invoke(ctx, "s", "u")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream unavailable")
	})
}
