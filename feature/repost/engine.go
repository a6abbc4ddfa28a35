package repost

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"repost-manager/core/relay"
	"repost-manager/feature/repost/models"

	"go.uber.org/zap"
)

// DefaultFetchLimit bounds how many remote repost events a sync or fetch
// requests when no limit is configured.
const DefaultFetchLimit = 500

// defaultCountTTL is how long repost counts are cached before re-querying
// the relays.
const defaultCountTTL = time.Minute

// Config holds the engine's session parameters.
type Config struct {
	// Pubkey is the local session user. All stateful operations are
	// scoped to this user's record set.
	Pubkey string
	// FetchLimit bounds remote queries. Zero means DefaultFetchLimit.
	FetchLimit int
	// CountTTL is the repost count cache TTL. Zero means one minute.
	CountTTL time.Duration
}

// Engine reconciles the in-memory repost index against the durable record
// store and the remote relay log. The index is the authoritative view for
// the session; the store seeds it across restarts; the relays are merged in
// on explicit sync.
//
// The mutex guards only in-memory state. Gateway and store calls happen
// outside it, so an operation's in-memory commit is atomic relative to other
// readers, but the check-remote-then-commit sequence is not atomic across
// concurrent invocations. Two concurrent toggles of the same ref can both
// read "not reposted" and one will fail with AlreadyRepostedError; callers
// are expected to serialize toggles per content item.
type Engine struct {
	store   Store
	gateway relay.Gateway
	logger  *zap.Logger

	pubkey     string
	fetchLimit int

	mu            sync.Mutex
	index         map[string]models.Record
	initialized   bool
	authenticated bool

	broadcaster *Broadcaster
	counts      *countCache

	done      chan struct{}
	closeOnce sync.Once
}

// NewEngine creates a reconciliation engine for the configured user.
func NewEngine(store Store, gateway relay.Gateway, cfg Config, logger *zap.Logger) *Engine {
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}
	countTTL := cfg.CountTTL
	if countTTL <= 0 {
		countTTL = defaultCountTTL
	}

	return &Engine{
		store:       store,
		gateway:     gateway,
		logger:      logger,
		pubkey:      cfg.Pubkey,
		fetchLimit:  fetchLimit,
		index:       make(map[string]models.Record),
		broadcaster: NewBroadcaster(),
		counts:      newCountCache(countTTL),
		done:        make(chan struct{}),
	}
}

// Pubkey returns the local session user.
func (e *Engine) Pubkey() string {
	return e.pubkey
}

// Authenticated returns the current session auth state. The engine does not
// enforce authentication on its operations; callers gate on this.
func (e *Engine) Authenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authenticated
}

// Watch subscribes to snapshots of the reposted content-ref set. The current
// snapshot is delivered immediately; a new one follows every successful
// mutation. The returned cancel func releases the subscription.
func (e *Engine) Watch() (<-chan map[string]struct{}, func()) {
	return e.broadcaster.Subscribe()
}

// IsReposted reports whether the content is reposted, seeding the index from
// the store on first use.
func (e *Engine) IsReposted(ctx context.Context, contentRef string) (bool, error) {
	if err := e.ensureInitialized(ctx); err != nil {
		return false, err
	}
	return e.IsRepostedSync(contentRef), nil
}

// IsRepostedSync reports membership from whatever is currently resident in
// memory. It never blocks and never initializes, so it may be stale before
// the first initializing operation.
func (e *Engine) IsRepostedSync(contentRef string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.index[contentRef]
	return ok
}

// Repost publishes a repost assertion for the content and records it.
// contentEventID optionally pins a concrete event id for broader relay
// compatibility. Returns the assertion event id.
func (e *Engine) Repost(ctx context.Context, contentRef, originalAuthor, contentEventID string) (string, error) {
	if err := e.ensureInitialized(ctx); err != nil {
		return "", err
	}
	if e.IsRepostedSync(contentRef) {
		return "", &AlreadyRepostedError{ContentRef: contentRef}
	}

	ev, err := e.gateway.PublishRepost(ctx, contentRef, refKind(contentRef), originalAuthor, contentEventID)
	if err != nil {
		return "", &RepostFailedError{ContentRef: contentRef, Reason: "relay publish failed", Err: err}
	}
	if ev == nil {
		return "", &RepostFailedError{ContentRef: contentRef, Reason: "no relay accepted the assertion"}
	}

	rec := models.Record{
		Pubkey:           e.pubkey,
		ContentRef:       contentRef,
		AssertionEventID: ev.ID,
		OriginalAuthor:   originalAuthor,
		CreatedAt:        ev.CreatedAt,
	}

	e.mu.Lock()
	e.index[contentRef] = rec
	set := e.refSetLocked()
	e.mu.Unlock()

	// The in-memory index is authoritative for the session; persistence
	// failure is surfaced but does not fail the repost.
	if err := e.store.Upsert(ctx, rec); err != nil {
		e.logger.Warn("failed to persist repost record",
			zap.String("content_ref", contentRef), zap.Error(err))
	}

	e.counts.invalidate("a|" + contentRef)
	e.broadcaster.Publish(set)
	return ev.ID, nil
}

// Unrepost publishes a retraction of the content's repost assertion and
// removes the record.
func (e *Engine) Unrepost(ctx context.Context, contentRef string) error {
	if err := e.ensureInitialized(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	rec, ok := e.index[contentRef]
	e.mu.Unlock()

	if !ok {
		// The index may have been cleared while durable storage still
		// holds the record.
		stored, err := e.store.Get(ctx, contentRef)
		if err != nil {
			return fmt.Errorf("failed to resolve repost record: %w", err)
		}
		if stored == nil {
			return &NotRepostedError{ContentRef: contentRef}
		}
		rec = *stored
	}

	ev, err := e.gateway.PublishRetraction(ctx, rec.AssertionEventID)
	if err != nil {
		return &UnrepostFailedError{ContentRef: contentRef, Reason: "relay publish failed", Err: err}
	}
	if ev == nil {
		return &UnrepostFailedError{ContentRef: contentRef, Reason: "no relay accepted the retraction"}
	}

	e.mu.Lock()
	delete(e.index, contentRef)
	set := e.refSetLocked()
	e.mu.Unlock()

	if _, err := e.store.Delete(ctx, contentRef); err != nil {
		e.logger.Warn("failed to delete repost record",
			zap.String("content_ref", contentRef), zap.Error(err))
	}

	e.counts.invalidate("a|" + contentRef)
	e.broadcaster.Publish(set)
	return nil
}

// ToggleRepost reposts or unreposts the content based on its current state
// as read from durable storage, which survives index resets across restarts.
// Returns the resulting state: true if now reposted. The two sub-calls are
// not atomic; see the Engine doc for the accepted race.
func (e *Engine) ToggleRepost(ctx context.Context, contentRef, originalAuthor, contentEventID string) (bool, error) {
	reposted, err := e.store.Contains(ctx, contentRef)
	if err != nil {
		return false, fmt.Errorf("failed to read repost state: %w", err)
	}

	if reposted {
		if err := e.Unrepost(ctx, contentRef); err != nil {
			return true, err
		}
		return false, nil
	}

	if _, err := e.Repost(ctx, contentRef, originalAuthor, contentEventID); err != nil {
		return false, err
	}
	return true, nil
}

// SyncUserReposts reconciles the index against the store and the relays in
// two phases: an instant local seed, then an authoritative remote merge.
// If the remote query fails but local data exists, the sync degrades to the
// local view instead of failing.
func (e *Engine) SyncUserReposts(ctx context.Context) (*models.SyncResult, error) {
	// Phase A: fast local seed, possibly stale.
	recs, err := e.store.GetAll(ctx)
	if err != nil {
		e.logger.Warn("local seed failed during sync", zap.Error(err))
	}

	e.mu.Lock()
	for _, rec := range recs {
		e.index[rec.ContentRef] = rec
	}
	set := e.refSetLocked()
	e.mu.Unlock()
	e.broadcaster.Publish(set)

	// Phase B: authoritative remote reconciliation.
	events, err := e.gateway.QueryByAuthors(ctx, []string{e.pubkey}, []int{relay.KindGenericRepost}, e.fetchLimit)
	if err != nil {
		e.mu.Lock()
		result := e.buildResultLocked()
		e.mu.Unlock()

		if len(result.OrderedRefs) > 0 {
			// Local data is better than no data.
			e.logger.Warn("remote sync failed, serving local records",
				zap.Int("records", len(result.OrderedRefs)), zap.Error(err))
			return result, nil
		}
		return nil, &SyncFailedError{Reason: "relay query failed with no local fallback", Err: err}
	}

	var changed []models.Record
	e.mu.Lock()
	for _, ev := range events {
		rec, ok := recordFromEvent(ev, e.pubkey)
		if !ok {
			continue
		}
		existing, exists := e.index[rec.ContentRef]
		// Never regress to an older timestamp for the same ref.
		if exists && rec.CreatedAt <= existing.CreatedAt {
			continue
		}
		e.index[rec.ContentRef] = rec
		changed = append(changed, rec)
	}
	e.initialized = true
	set = e.refSetLocked()
	result := e.buildResultLocked()
	e.mu.Unlock()

	if len(changed) > 0 {
		if err := e.store.UpsertBatch(ctx, changed); err != nil {
			e.logger.Warn("failed to persist synced records",
				zap.Int("records", len(changed)), zap.Error(err))
		}
	}

	e.broadcaster.Publish(set)
	return result, nil
}

// FetchUserReposts returns the content refs reposted by any user, most
// recent first. It neither touches the local index nor requires
// authentication.
func (e *Engine) FetchUserReposts(ctx context.Context, pubkey string) ([]string, error) {
	recs, err := e.FetchUserRepostRecords(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	refs := make([]string, len(recs))
	for i, rec := range recs {
		refs[i] = rec.ContentRef
	}
	return refs, nil
}

// FetchUserRepostRecords returns full repost records for any user, most
// recent first, de-duplicated by content ref (the most recent assertion
// wins). Nothing is cached locally.
func (e *Engine) FetchUserRepostRecords(ctx context.Context, pubkey string) ([]models.Record, error) {
	events, err := e.gateway.QueryByAuthors(ctx, []string{pubkey}, []int{relay.KindGenericRepost}, e.fetchLimit)
	if err != nil {
		return nil, &FetchRepostsFailedError{Pubkey: pubkey, Reason: "relay query failed", Err: err}
	}

	// Most recent first so the first occurrence per ref wins below.
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt > events[j].CreatedAt
		}
		return events[i].ID < events[j].ID
	})

	seen := make(map[string]struct{})
	var recs []models.Record
	for _, ev := range events {
		ref, ok := ev.FirstTag("a")
		if !ok || ev.ID == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}

		author, _ := ev.FirstTag("p")
		recs = append(recs, models.Record{
			Pubkey:           pubkey,
			ContentRef:       ref,
			AssertionEventID: ev.ID,
			OriginalAuthor:   author,
			CreatedAt:        ev.CreatedAt,
		})
	}
	return recs, nil
}

// RepostCount returns how many repost assertions reference the content
// across all users, by addressable reference.
func (e *Engine) RepostCount(ctx context.Context, contentRef string) (int64, error) {
	return e.counts.get(ctx, "a|"+contentRef, func(ctx context.Context) (int64, error) {
		return e.gateway.CountEvents(ctx, relay.Filter{
			Kinds: []int{relay.KindGenericRepost},
			Tags:  map[string][]string{"a": {contentRef}},
		})
	})
}

// RepostCountByEventID returns how many repost assertions reference the
// content by raw event id, counting the legacy repost kind as well.
func (e *Engine) RepostCountByEventID(ctx context.Context, eventID string) (int64, error) {
	return e.counts.get(ctx, "e|"+eventID, func(ctx context.Context) (int64, error) {
		return e.gateway.CountEvents(ctx, relay.Filter{
			Kinds: []int{relay.KindGenericRepost, relay.KindRepost},
			Tags:  map[string][]string{"e": {eventID}},
		})
	})
}

// ClearCache empties the index and the durable store for this user and
// broadcasts the empty set. The remote log is untouched. Used on logout.
func (e *Engine) ClearCache(ctx context.Context) error {
	e.mu.Lock()
	e.index = make(map[string]models.Record)
	e.initialized = false
	e.mu.Unlock()

	err := e.store.ClearAll(ctx)
	e.broadcaster.Publish(map[string]struct{}{})
	if err != nil {
		return fmt.Errorf("failed to clear repost records: %w", err)
	}
	return nil
}

// Close stops the auth subscription and the broadcaster.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.broadcaster.Close()
	})
}

// ensureInitialized seeds the index from the durable store once per session.
// This is a local-only seed; authoritative reconciliation happens through
// SyncUserReposts.
func (e *Engine) ensureInitialized(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	recs, err := e.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed repost index: %w", err)
	}

	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	for _, rec := range recs {
		e.index[rec.ContentRef] = rec
	}
	e.initialized = true
	set := e.refSetLocked()
	e.mu.Unlock()

	e.broadcaster.Publish(set)
	return nil
}

func (e *Engine) refSetLocked() map[string]struct{} {
	set := make(map[string]struct{}, len(e.index))
	for ref := range e.index {
		set[ref] = struct{}{}
	}
	return set
}

// buildResultLocked projects the index into a SyncResult, ordered by
// created_at descending with ties broken by content ref ascending.
func (e *Engine) buildResultLocked() *models.SyncResult {
	recs := make([]models.Record, 0, len(e.index))
	for _, rec := range e.index {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt > recs[j].CreatedAt
		}
		return recs[i].ContentRef < recs[j].ContentRef
	})

	result := &models.SyncResult{
		OrderedRefs: make([]string, len(recs)),
		EventIDs:    make(map[string]string, len(recs)),
	}
	for i, rec := range recs {
		result.OrderedRefs[i] = rec.ContentRef
		result.EventIDs[rec.ContentRef] = rec.AssertionEventID
	}
	return result
}

// recordFromEvent extracts a record from a remote repost assertion. Events
// missing the reference or attribution tag are skipped.
func recordFromEvent(ev relay.Event, pubkey string) (models.Record, bool) {
	ref, ok := ev.FirstTag("a")
	if !ok {
		return models.Record{}, false
	}
	author, ok := ev.FirstTag("p")
	if !ok {
		return models.Record{}, false
	}
	if ev.ID == "" {
		return models.Record{}, false
	}
	return models.Record{
		Pubkey:           pubkey,
		ContentRef:       ref,
		AssertionEventID: ev.ID,
		OriginalAuthor:   author,
		CreatedAt:        ev.CreatedAt,
	}, true
}

// refKind extracts the content kind from an addressable reference
// (kind:author_pubkey:d-tag). Returns 0 for malformed refs.
func refKind(contentRef string) int {
	head, _, ok := strings.Cut(contentRef, ":")
	if !ok {
		return 0
	}
	kind, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return kind
}
