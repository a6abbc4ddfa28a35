// Package middleware groups the HTTP middleware used by the application:
//
//   - rayid: assigns a unique ray id per request for log correlation.
//   - auth: enforces the API key on protected routes.
package middleware
