// Package wire defines the JSON frame format of the clipsync push channel.
//
// Every frame is a single JSON text message carrying a "type" discriminator.
//
// # Client to Server
//
//	{"type":"auth","token":"<credential>"}
//
// # Server to Client
//
// Authentication results:
//
//	{"type":"auth_success"}
//	{"type":"auth_error","message":"<text>"}
//
// Notifications:
//
//	{"type":"new_clip","id":"<id>","content":"<text>","tags":["..."]}
//	{"type":"updated_clip","id":"<id>"}
//	{"type":"deleted_clip","id":"<id>"}
//	{"type":"clips_cleaned_up","ids":["..."],"count":<n>}
//
// Keep-alive:
//
//	{"type":"ping"}
//
// # Close Codes
//
// Codes with reserved meaning on the channel:
//   - 1000: normal closure, no retry
//   - 4000: client-declared liveness timeout, always retried
//   - 4001: authentication rejected, no retry
package wire
