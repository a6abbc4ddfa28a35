package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Event kinds used by the repost subsystem.
const (
	// KindDeletion is a retraction event nullifying a prior event by id.
	KindDeletion = 5
	// KindRepost is the legacy repost kind, referencing content by event id.
	KindRepost = 6
	// KindGenericRepost is the addressable repost kind, referencing content
	// by its addressable "a" tag. This is the primary kind published.
	KindGenericRepost = 16
)

// Event is a signed record on the relay network.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// FirstTag returns the value of the first tag whose head equals marker.
// Short or malformed tag arrays are skipped rather than treated as errors.
func (e *Event) FirstTag(marker string) (string, bool) {
	for _, tag := range e.Tags {
		if len(tag) < 2 {
			continue
		}
		if tag[0] == marker {
			return tag[1], true
		}
	}
	return "", false
}

// ComputeID returns the canonical event id: the hex-encoded SHA-256 of the
// serialized [0, pubkey, created_at, kind, tags, content] array.
func (e *Event) ComputeID() (string, error) {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}
	canonical, err := json.Marshal([]any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content})
	if err != nil {
		return "", fmt.Errorf("failed to serialize event: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Filter selects events on a relay. Tags maps a tag marker (e.g. "a", "e")
// to accepted values; on the wire each marker is prefixed with "#".
type Filter struct {
	Authors []string
	Kinds   []int
	Tags    map[string][]string
	Limit   int
}

// MarshalJSON encodes the filter in the relay wire format, expanding tag
// selectors into "#<marker>" keys.
func (f Filter) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	for marker, values := range f.Tags {
		if len(values) > 0 {
			m["#"+marker] = values
		}
	}
	return json.Marshal(m)
}
