// Package server holds the HTTP server and local session configuration.
//
// The main application entry point handles server startup; this package only
// defines the configuration structure: the listen port, the API key, and the
// local user's identity (pubkey, signing secret, fetch limit).
package server
