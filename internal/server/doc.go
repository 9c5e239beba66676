// Package server implements the HTTP and WebSocket transport for the group
// chat: configuration, the Hub that adapts WebSocket connections to the chat
// router, per-connection pumps, origin checks, metrics and routing.
package server
