// Package persistence stores the watch client's runtime state between runs.
//
// The state is a small JSON document recording the last push channel the
// client reached, so a restart can reconnect before discovery finishes.
// Notification history lives in the journal package, not here.
package persistence
