package relay

import "context"

// Gateway defines the interface for publishing and querying events on the
// relay network. Cryptographic signing happens beneath this interface; a
// returned event is already signed and carries its final id.
type Gateway interface {
	// PublishRepost publishes a repost assertion for the given addressable
	// content reference. targetKind is the kind of the reposted content,
	// originalAuthor its author's pubkey. contentEventID optionally pins a
	// concrete event id for relays that only index "e" tags. A nil event
	// with a nil error means no relay accepted the assertion.
	PublishRepost(ctx context.Context, contentRef string, targetKind int, originalAuthor, contentEventID string) (*Event, error)

	// PublishRetraction publishes a deletion event nullifying the event
	// with the given id.
	PublishRetraction(ctx context.Context, assertionEventID string) (*Event, error)

	// QueryByAuthors returns events of the given kinds authored by any of
	// the given pubkeys, up to limit per relay, de-duplicated by event id.
	QueryByAuthors(ctx context.Context, authors []string, kinds []int, limit int) ([]Event, error)

	// CountEvents returns the number of events matching the filter.
	CountEvents(ctx context.Context, filter Filter) (int64, error)
}
