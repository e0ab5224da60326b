// Package statestore is the persisted, process-wide key/value area shared by
// every coordinator component. Values are raw JSON so surfaces with different
// shapes can share the same keys.
package statestore

import (
	"context"
	"encoding/json"
	"sync"
)

// Persisted keys. The identity keys (session, user) and selectedDataset
// default to absent; initialization only seeds mode and systemPrompt.
const (
	KeySession         = "session"
	KeyUser            = "user"
	KeySelectedDataset = "selectedDataset"
	KeyMode            = "mode"
	KeySystemPrompt    = "systemPrompt"
)

const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// DefaultSystemPrompt is the seed instruction template for auto capture. It
// must produce exactly one delimited question/answer pair.
const DefaultSystemPrompt = `Convert the following text into a clear question and answer pair, ` +
	`formatted as ###QUESTION###<question>###ANSWER###<answer>.

Guidelines:
- The question should be self-contained and answerable from the text.
- The answer should be concise but complete.
- If the text lists items (like 1, 2, 3), include them in the answer.`

// Change describes one key transition delivered to listeners. OldValue or
// NewValue is nil when the key was absent on that side.
type Change struct {
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

type Listener func(Change)

type Store interface {
	// Get returns the present keys only; absent keys are simply missing
	// from the result map.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]json.RawMessage) error
	// Remove deletes all given keys as one batch; listeners observe the
	// removals only after every key is gone.
	Remove(ctx context.Context, keys ...string) error
	OnChange(l Listener)
}

// Initialize seeds the documented defaults. It is idempotent: keys that are
// already present are never overwritten, so re-running it on upgrade is safe.
func Initialize(ctx context.Context, s Store) error {
	existing, err := s.Get(ctx, KeySession, KeyUser, KeySelectedDataset, KeyMode, KeySystemPrompt)
	if err != nil {
		return err
	}

	defaults := map[string]string{
		KeyMode:         ModeAuto,
		KeySystemPrompt: DefaultSystemPrompt,
	}

	values := make(map[string]json.RawMessage)
	for key, def := range defaults {
		if _, ok := existing[key]; ok {
			continue
		}
		raw, err := json.Marshal(def)
		if err != nil {
			return err
		}
		values[key] = raw
	}

	if len(values) == 0 {
		return nil
	}
	return s.Set(ctx, values)
}

// GetString reads a single string-valued key. The second return reports
// presence.
func GetString(ctx context.Context, s Store, key string) (string, bool, error) {
	values, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	raw, ok := values[key]
	if !ok {
		return "", false, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetString writes a single string-valued key.
func SetString(ctx context.Context, s Store, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, map[string]json.RawMessage{key: raw})
}

// listenerSet is the shared listener registry for store backends.
type listenerSet struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (ls *listenerSet) add(l Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.listeners = append(ls.listeners, l)
}

func (ls *listenerSet) notify(changes []Change) {
	ls.mu.RLock()
	registered := make([]Listener, len(ls.listeners))
	copy(registered, ls.listeners)
	ls.mu.RUnlock()

	for _, change := range changes {
		for _, l := range registered {
			l(change)
		}
	}
}
