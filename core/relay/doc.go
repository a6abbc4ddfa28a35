// Package relay implements the event gateway for the federated relay
// network: publishing signed repost assertions and retractions, and querying
// the append-only event log by author, kind, and reference.
//
// # Gateway
//
// The Gateway interface is the capability consumed by the repost engine.
// Client is the production implementation, speaking the websocket frame
// protocol (EVENT/REQ/EOSE/COUNT/OK) against one or more relays. Relays are
// eventually consistent and may hold divergent views; queries merge results
// by event id and publishes succeed if any relay accepts.
//
// # Events
//
// Events carry an ordered list of loosely typed tag arrays. Identifier
// extraction (FirstTag) takes the first tag whose head matches a marker and
// fails soft on short or malformed tags.
package relay
