package repost_test

import (
	"testing"

	"repost-manager/feature/repost"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterSeedsCurrentSnapshot(t *testing.T) {
	b := repost.NewBroadcaster()
	defer b.Close()

	b.Publish(map[string]struct{}{ref1: {}})

	ch, cancel := b.Subscribe()
	defer cancel()

	assert.Equal(t, map[string]struct{}{ref1: {}}, readSet(t, ch))
}

func TestBroadcasterLatestWins(t *testing.T) {
	b := repost.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()
	readSet(t, ch) // seed

	// A slow consumer misses the intermediate snapshot.
	b.Publish(map[string]struct{}{ref1: {}})
	b.Publish(map[string]struct{}{ref1: {}, ref2: {}})

	assert.Equal(t, map[string]struct{}{ref1: {}, ref2: {}}, readSet(t, ch))
}

func TestBroadcasterSnapshotIsACopy(t *testing.T) {
	b := repost.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	set := readSet(t, ch)
	set["mutated"] = struct{}{}

	assert.Empty(t, b.Current())
}

func TestBroadcasterCancel(t *testing.T) {
	b := repost.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	readSet(t, ch)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic or block.
	b.Publish(map[string]struct{}{ref1: {}})

	// Cancelling twice is safe.
	cancel()
}

func TestBroadcasterClose(t *testing.T) {
	b := repost.NewBroadcaster()

	ch, _ := b.Subscribe()
	readSet(t, ch)
	b.Close()

	_, open := <-ch
	require.False(t, open)

	// Subscriptions after close are delivered closed channels.
	ch2, cancel := b.Subscribe()
	defer cancel()
	_, open = <-ch2
	assert.False(t, open)

	b.Publish(map[string]struct{}{ref1: {}})
	assert.Empty(t, b.Current())
}
