package models

// Record maps one reposted content item to the remote event asserting the
// repost. Records are immutable once constructed; updates replace the Record
// wholesale.
type Record struct {
	// Pubkey is the owning user. Records are scoped per user.
	Pubkey string `gorm:"primaryKey;size:64" json:"pubkey"`

	// ContentRef is the addressable reference of the reposted content
	// (kind:author_pubkey:d-tag). At most one Record per content item per
	// user.
	ContentRef string `gorm:"primaryKey;column:content_ref" json:"content_ref"`

	// AssertionEventID identifies the remote event representing this
	// repost; it is required to construct a retraction later.
	AssertionEventID string `gorm:"column:assertion_event_id" json:"assertion_event_id"`

	// OriginalAuthor is the pubkey of the content's original author.
	OriginalAuthor string `gorm:"column:original_author" json:"original_author"`

	// CreatedAt is the repost assertion time in unix seconds, used for
	// recency ordering. It carries the remote event's timestamp, never a
	// database-generated one.
	CreatedAt int64 `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"created_at"`
}

// TableName returns the table storing repost records.
func (Record) TableName() string {
	return "repost_records"
}

// Valid reports whether the record can be retracted later.
func (r Record) Valid() bool {
	return r.AssertionEventID != ""
}

// SyncResult summarizes the outcome of a sync: content refs ordered most
// recent first, and the assertion event id per ref. It is a read-only
// projection of the record set at a point in time.
type SyncResult struct {
	// OrderedRefs is sorted by created_at descending; ties are broken by
	// content ref ascending, so the order is stable.
	OrderedRefs []string `json:"ordered_refs"`

	// EventIDs maps each content ref to its assertion event id.
	EventIDs map[string]string `json:"event_ids"`
}
