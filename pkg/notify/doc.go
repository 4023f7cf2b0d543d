// Package notify routes decoded push-channel notifications to application handlers.
//
// The dispatcher is deliberately forgiving: a frame that cannot be decoded,
// carries an unknown type, or has no registered handler is dropped. A malformed
// application payload is not a transport error and never closes the channel.
//
// Dispatch is synchronous. Handlers observe notifications in wire order and
// one at a time; there is no batching or reordering.
package notify
