// Package journal keeps a local SQLite history of received notifications.
//
// The journal is written from controller callbacks, so entries appear in the
// order notifications arrived. Clip content is stored as a short excerpt only.
package journal
