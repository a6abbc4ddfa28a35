package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRelay serves the websocket frame protocol with canned behavior.
type fakeRelay struct {
	accept bool    // OK verdict for EVENT frames
	events []Event // served for REQ frames
	count  int64   // served for COUNT frames
}

func (f *fakeRelay) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var parts []json.RawMessage
			require.NoError(t, json.Unmarshal(message, &parts))
			var head string
			require.NoError(t, json.Unmarshal(parts[0], &head))

			switch head {
			case "EVENT":
				var ev Event
				require.NoError(t, json.Unmarshal(parts[1], &ev))
				_ = conn.WriteJSON([]any{"OK", ev.ID, f.accept, ""})
			case "REQ":
				var subID string
				require.NoError(t, json.Unmarshal(parts[1], &subID))
				for _, ev := range f.events {
					_ = conn.WriteJSON([]any{"EVENT", subID, ev})
				}
				_ = conn.WriteJSON([]any{"EOSE", subID})
			case "COUNT":
				var subID string
				require.NoError(t, json.Unmarshal(parts[1], &subID))
				_ = conn.WriteJSON([]any{"COUNT", subID, map[string]int64{"count": f.count}})
			case "CLOSE":
				return
			}
		}
	}
}

func newTestClient(t *testing.T, relays ...*fakeRelay) *Client {
	var urls []string
	for _, f := range relays {
		srv := httptest.NewServer(f.handler(t))
		t.Cleanup(srv.Close)
		urls = append(urls, "ws"+strings.TrimPrefix(srv.URL, "http"))
	}

	cfg := Config{URLs: strings.Join(urls, ","), TimeoutSeconds: 5}
	return NewClient(cfg, NewLocalSigner("abc", "secret"), zap.NewNop())
}

func TestClientPublishRepost(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		client := newTestClient(t, &fakeRelay{accept: true})

		ev, err := client.PublishRepost(context.Background(), "34236:abc:vine1", 34236, "abc", "ev0")
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, KindGenericRepost, ev.Kind)

		ref, ok := ev.FirstTag("a")
		assert.True(t, ok)
		assert.Equal(t, "34236:abc:vine1", ref)

		pinned, ok := ev.FirstTag("e")
		assert.True(t, ok)
		assert.Equal(t, "ev0", pinned)
	})

	t.Run("Rejected Everywhere", func(t *testing.T) {
		client := newTestClient(t, &fakeRelay{accept: false})

		ev, err := client.PublishRepost(context.Background(), "34236:abc:vine1", 34236, "abc", "")
		require.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("One Acceptance Suffices", func(t *testing.T) {
		client := newTestClient(t, &fakeRelay{accept: false}, &fakeRelay{accept: true})

		ev, err := client.PublishRepost(context.Background(), "34236:abc:vine1", 34236, "abc", "")
		require.NoError(t, err)
		assert.NotNil(t, ev)
	})
}

func TestClientPublishRetraction(t *testing.T) {
	client := newTestClient(t, &fakeRelay{accept: true})

	ev, err := client.PublishRetraction(context.Background(), "target-event")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, KindDeletion, ev.Kind)

	target, ok := ev.FirstTag("e")
	assert.True(t, ok)
	assert.Equal(t, "target-event", target)
}

func TestClientQueryByAuthors(t *testing.T) {
	shared := Event{ID: "ev1", PubKey: "abc", Kind: KindGenericRepost, CreatedAt: 100}
	only2 := Event{ID: "ev2", PubKey: "abc", Kind: KindGenericRepost, CreatedAt: 200}

	client := newTestClient(t,
		&fakeRelay{events: []Event{shared}},
		&fakeRelay{events: []Event{shared, only2}},
	)

	events, err := client.QueryByAuthors(context.Background(), []string{"abc"}, []int{KindGenericRepost}, 500)
	require.NoError(t, err)

	// De-duplicated by event id across relays.
	assert.Len(t, events, 2)
}

func TestClientQueryAllRelaysDown(t *testing.T) {
	cfg := Config{URLs: "ws://127.0.0.1:1", TimeoutSeconds: 1}
	client := NewClient(cfg, NewLocalSigner("abc", "secret"), zap.NewNop())

	_, err := client.QueryByAuthors(context.Background(), []string{"abc"}, []int{KindGenericRepost}, 500)
	assert.Error(t, err)
}

func TestClientCountEvents(t *testing.T) {
	client := newTestClient(t, &fakeRelay{count: 42})

	count, err := client.CountEvents(context.Background(), Filter{
		Kinds: []int{KindGenericRepost},
		Tags:  map[string][]string{"a": {"34236:abc:vine1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
