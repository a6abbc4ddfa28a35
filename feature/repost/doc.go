// Package repost implements repost synchronization and local-cache
// reconciliation: it manages the local user's repost relationship to
// addressable content, keeping three sources of truth consistent:
//  1. An in-memory index, authoritative for the current session.
//  2. A durable gorm-backed record store, authoritative across restarts.
//  3. The remote relay event log, authoritative across devices.
//
// # Engine
//
// The Engine owns the index. Reads consult the index first, seeding it from
// the store on first use. Mutations publish to the relays before committing
// locally, so a failed publish leaves no partial state. SyncUserReposts runs
// the two-phase reconciliation: an instant local seed, then a remote merge
// that never regresses a record to an older timestamp. When the relays are
// unreachable but local records exist, sync degrades to the local view.
//
// # Components
//
//   - Engine: toggle/query/sync operations and the reactive set broadcast.
//   - Store: the durable record cache, scoped by user pubkey.
//   - Broadcaster: snapshot stream of the reposted-ref set for UI binding.
//   - Handler: HTTP endpoints over the engine.
//   - Loader: registers the feature with the application.
//
// # HTTP Endpoints
//
//   - GET  /reposts/status?ref=      : repost status for the session user.
//   - POST /reposts/toggle           : repost or unrepost content.
//   - POST /reposts/sync             : run the two-phase sync.
//   - GET  /reposts/user/:pubkey     : any user's reposts, most recent first.
//   - GET  /reposts/count?ref=       : repost count by addressable reference.
//   - GET  /reposts/count/event/:id  : repost count by event id.
package repost
