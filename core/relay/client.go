package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"repost-manager/core/utils"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is a websocket Gateway implementation speaking the relay frame
// protocol (EVENT/REQ/EOSE/COUNT/OK) against one or more relays. Each call
// dials fresh connections; relays may hold divergent views, so queries merge
// results by event id and publishes succeed if any relay accepts.
type Client struct {
	urls    []string
	timeout time.Duration
	signer  Signer
	logger  *zap.Logger
}

// NewClient creates a relay client from the configuration.
func NewClient(cfg Config, signer Signer, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 15
	}
	return &Client{
		urls:    cfg.URLList(),
		timeout: time.Duration(timeout) * time.Second,
		signer:  signer,
		logger:  logger,
	}
}

// PublishRepost publishes a repost assertion event.
func (c *Client) PublishRepost(ctx context.Context, contentRef string, targetKind int, originalAuthor, contentEventID string) (*Event, error) {
	tags := [][]string{
		{"a", contentRef},
		{"k", utils.ToString(targetKind)},
		{"p", originalAuthor},
	}
	if contentEventID != "" {
		// Pin a concrete event id for relays that only index "e" tags.
		tags = append(tags, []string{"e", contentEventID})
	}

	ev := &Event{
		Kind:      KindGenericRepost,
		CreatedAt: time.Now().Unix(),
		Tags:      tags,
	}
	return c.signAndPublish(ctx, ev)
}

// PublishRetraction publishes a deletion event for the given event id.
func (c *Client) PublishRetraction(ctx context.Context, assertionEventID string) (*Event, error) {
	ev := &Event{
		Kind:      KindDeletion,
		CreatedAt: time.Now().Unix(),
		Tags:      [][]string{{"e", assertionEventID}},
	}
	return c.signAndPublish(ctx, ev)
}

// QueryByAuthors returns events of the given kinds authored by the given
// pubkeys, merged across all configured relays.
func (c *Client) QueryByAuthors(ctx context.Context, authors []string, kinds []int, limit int) ([]Event, error) {
	return c.query(ctx, Filter{Authors: authors, Kinds: kinds, Limit: limit})
}

// CountEvents returns the count of events matching the filter, taken from
// the first relay that answers.
func (c *Client) CountEvents(ctx context.Context, filter Filter) (int64, error) {
	var errs []error
	for _, url := range c.urls {
		count, err := c.countOne(ctx, url, filter)
		if err != nil {
			c.logger.Debug("relay count failed", zap.String("relay", url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		return count, nil
	}
	return 0, fmt.Errorf("count failed on all relays: %w", errors.Join(errs...))
}

func (c *Client) signAndPublish(ctx context.Context, ev *Event) (*Event, error) {
	if err := c.signer.Sign(ev); err != nil {
		return nil, err
	}

	accepted := 0
	var errs []error
	for _, url := range c.urls {
		ok, err := c.publishOne(ctx, url, ev)
		if err != nil {
			c.logger.Debug("relay publish failed", zap.String("relay", url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		if ok {
			accepted++
		}
	}

	if accepted == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("publish failed on all relays: %w", errors.Join(errs...))
		}
		// Every relay answered but none accepted the event.
		return nil, nil
	}
	return ev, nil
}

func (c *Client) publishOne(ctx context.Context, url string, ev *Event) (bool, error) {
	conn, err := c.dial(ctx, url)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := conn.WriteJSON([]any{"EVENT", ev}); err != nil {
		return false, fmt.Errorf("write event: %w", err)
	}

	for {
		head, parts, err := c.readFrame(conn)
		if err != nil {
			return false, err
		}
		if head != "OK" || len(parts) < 3 {
			continue
		}

		var id string
		var ok bool
		if err := json.Unmarshal(parts[1], &id); err != nil || id != ev.ID {
			continue
		}
		if err := json.Unmarshal(parts[2], &ok); err != nil {
			return false, fmt.Errorf("malformed OK frame: %w", err)
		}
		if !ok && len(parts) > 3 {
			var reason string
			_ = json.Unmarshal(parts[3], &reason)
			c.logger.Debug("relay rejected event",
				zap.String("relay", url),
				zap.String("event_id", ev.ID),
				zap.String("reason", reason))
		}
		return ok, nil
	}
}

func (c *Client) query(ctx context.Context, filter Filter) ([]Event, error) {
	merged := make(map[string]Event)
	var errs []error

	for _, url := range c.urls {
		events, err := c.queryOne(ctx, url, filter)
		if err != nil {
			c.logger.Debug("relay query failed", zap.String("relay", url), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		for _, ev := range events {
			merged[ev.ID] = ev
		}
	}

	if len(merged) == 0 && len(errs) == len(c.urls) && len(errs) > 0 {
		return nil, fmt.Errorf("query failed on all relays: %w", errors.Join(errs...))
	}

	results := make([]Event, 0, len(merged))
	for _, ev := range merged {
		results = append(results, ev)
	}
	return results, nil
}

func (c *Client) queryOne(ctx context.Context, url string, filter Filter) ([]Event, error) {
	conn, err := c.dial(ctx, url)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	subID := uuid.NewString()
	if err := conn.WriteJSON([]any{"REQ", subID, filter}); err != nil {
		return nil, fmt.Errorf("write req: %w", err)
	}

	var events []Event
	for {
		head, parts, err := c.readFrame(conn)
		if err != nil {
			return nil, err
		}

		switch head {
		case "EVENT":
			if len(parts) < 3 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(parts[2], &ev); err != nil {
				// Malformed events are skipped, not fatal.
				c.logger.Debug("skipping malformed event", zap.String("relay", url), zap.Error(err))
				continue
			}
			events = append(events, ev)
		case "EOSE":
			_ = conn.WriteJSON([]any{"CLOSE", subID})
			return events, nil
		case "CLOSED":
			return events, fmt.Errorf("subscription closed by relay")
		}
	}
}

func (c *Client) countOne(ctx context.Context, url string, filter Filter) (int64, error) {
	conn, err := c.dial(ctx, url)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	subID := uuid.NewString()
	if err := conn.WriteJSON([]any{"COUNT", subID, filter}); err != nil {
		return 0, fmt.Errorf("write count: %w", err)
	}

	for {
		head, parts, err := c.readFrame(conn)
		if err != nil {
			return 0, err
		}
		if head != "COUNT" || len(parts) < 3 {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal(parts[2], &payload); err != nil {
			return 0, fmt.Errorf("malformed COUNT frame: %w", err)
		}
		return int64(utils.ToInt(payload["count"])), nil
	}
}

func (c *Client) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	return conn, nil
}

func (c *Client) readFrame(conn *websocket.Conn) (string, []json.RawMessage, error) {
	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", nil, fmt.Errorf("read frame: %w", err)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(message, &parts); err != nil {
		return "", nil, fmt.Errorf("malformed frame: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty frame")
	}

	var head string
	if err := json.Unmarshal(parts[0], &head); err != nil {
		return "", nil, fmt.Errorf("malformed frame head: %w", err)
	}
	return head, parts, nil
}
