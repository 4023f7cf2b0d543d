// Package liveness implements the push-channel liveness watchdog.
//
// A connection can die without any close being observed: a NAT entry expires,
// a laptop sleeps, a proxy drops idle streams. The watchdog declares the channel
// dead when no inbound traffic arrives within a bounded window.
//
// # Window
//
// The window is a policy constant, not negotiated with the server:
//
//	window = 2 × server keep-alive interval
//
// With the default 30 second server keep-alive, the window is 60 seconds.
//
// # Timer Behavior
//
//   - Arm starts a cycle with the given timeout
//   - Pet pushes the deadline out by a full timeout (any inbound frame or keep-alive)
//   - Disarm ends the cycle without firing; call it before a voluntary close
//   - Expiry invokes the callback exactly once per cycle
//   - Disarming or petting an expired or disarmed watchdog is a no-op
package liveness
