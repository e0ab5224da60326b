package statestore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeSeedsDefaults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := Initialize(ctx, store)
	require.NoError(t, err)

	mode, ok, err := GetString(ctx, store, KeyMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ModeAuto, mode)

	prompt, ok, err := GetString(ctx, store, KeySystemPrompt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, prompt, "###QUESTION###")

	// Identity keys default to absent.
	values, err := store.Get(ctx, KeySession, KeyUser, KeySelectedDataset)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestInitializeIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, SetString(ctx, store, KeyMode, ModeManual))
	require.NoError(t, SetString(ctx, store, KeySystemPrompt, "custom template"))

	require.NoError(t, Initialize(ctx, store))
	require.NoError(t, Initialize(ctx, store))

	mode, _, err := GetString(ctx, store, KeyMode)
	require.NoError(t, err)
	assert.Equal(t, ModeManual, mode, "existing values must never be overwritten")

	prompt, _, err := GetString(ctx, store, KeySystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "custom template", prompt)
}

func TestOnChangeDeliversOldAndNewValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var changes []Change
	store.OnChange(func(c Change) {
		changes = append(changes, c)
	})

	require.NoError(t, SetString(ctx, store, KeySelectedDataset, "d1"))
	require.NoError(t, SetString(ctx, store, KeySelectedDataset, "d2"))

	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].OldValue)
	assert.Equal(t, json.RawMessage(`"d1"`), changes[0].NewValue)
	assert.Equal(t, json.RawMessage(`"d1"`), changes[1].OldValue)
	assert.Equal(t, json.RawMessage(`"d2"`), changes[1].NewValue)
}

func TestRemoveIsBatched(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, SetString(ctx, store, KeySession, "s"))
	require.NoError(t, SetString(ctx, store, KeyUser, "u"))
	require.NoError(t, SetString(ctx, store, KeySelectedDataset, "d"))

	var removed []string
	store.OnChange(func(c Change) {
		if c.NewValue == nil {
			// By the time any removal is observed, every key must
			// already be gone.
			values, err := store.Get(ctx, KeySession, KeyUser, KeySelectedDataset)
			require.NoError(t, err)
			assert.Empty(t, values)
			removed = append(removed, c.Key)
		}
	})

	require.NoError(t, store.Remove(ctx, KeySession, KeyUser, KeySelectedDataset))
	assert.ElementsMatch(t, []string{KeySession, KeyUser, KeySelectedDataset}, removed)

	// Removing absent keys is a no-op, not an error.
	require.NoError(t, store.Remove(ctx, KeySession))
	assert.Len(t, removed, 3)
}
