package gatewaysdk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRegistryAddRemove(t *testing.T) {
	r := NewSubscriptionRegistry()
	id := r.Add("telemetry.sensor-42.>", func(string, Envelope) {})
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Remove(id))
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Remove(id))
}

func TestSubscriptionRegistryDispatchMatchesWildcards(t *testing.T) {
	r := NewSubscriptionRegistry()

	var mu sync.Mutex
	var got []string

	r.Add("telemetry.*.temperature", func(subject string, env Envelope) {
		mu.Lock()
		got = append(got, subject)
		mu.Unlock()
	})
	r.Add("telemetry.sensor-1.humidity", func(subject string, env Envelope) {
		mu.Lock()
		got = append(got, subject)
		mu.Unlock()
	})

	r.Dispatch("telemetry.sensor-1.temperature", Envelope{})
	r.Dispatch("telemetry.sensor-1.humidity", Envelope{})
	r.Dispatch("telemetry.sensor-1.pressure", Envelope{})

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"telemetry.sensor-1.temperature", "telemetry.sensor-1.humidity"}, got)
}

func TestSubscriptionRegistryRemoveSubject(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Add("a.b", func(string, Envelope) {})
	r.Add("a.b", func(string, Envelope) {})
	r.Add("a.c", func(string, Envelope) {})

	require.Equal(t, 2, r.RemoveSubject("a.b"))
	assert.Equal(t, 1, r.Len())
}

func TestSubscriptionRegistryPatternsDeduplicated(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Add("a.b", func(string, Envelope) {})
	r.Add("a.b", func(string, Envelope) {})
	r.Add("a.c", func(string, Envelope) {})

	assert.Equal(t, []string{"a.b", "a.c"}, r.Patterns())
}

func TestSubscriptionRegistryPatternsPreservesInsertionOrder(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Add("z.first", func(string, Envelope) {})
	r.Add("a.second", func(string, Envelope) {})
	r.Add("m.third", func(string, Envelope) {})

	assert.Equal(t, []string{"z.first", "a.second", "m.third"}, r.Patterns())
}

func TestSubscriptionRegistryDispatchHandlerCanUnsubscribeWithoutDeadlock(t *testing.T) {
	r := NewSubscriptionRegistry()
	var id SubscriptionID
	id = r.Add("a.b", func(string, Envelope) {
		r.Remove(id)
	})

	assert.NotPanics(t, func() {
		r.Dispatch("a.b", Envelope{})
	})
	assert.Equal(t, 0, r.Len())
}

func TestSubscriptionRegistrySnapshot(t *testing.T) {
	r := NewSubscriptionRegistry()
	id := r.Add("a.b", func(string, Envelope) {})

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, "a.b", snap[0].Pattern)
	assert.True(t, snap[0].Active)
}
