// Package config loads the watch client's YAML configuration.
//
// A file looks like:
//
//	server:
//	  url: wss://clips.example.com/ws
//	  credential_env: CLIPSYNC_TOKEN
//	  ca_file: /etc/clipsync/ca.pem
//	  keepalive_interval: 30s
//	reconnect:
//	  initial: 1s
//	  max: 30s
//	discovery:
//	  enabled: true
//	journal:
//	  path: ~/.local/state/clipsync/journal.db
//	  retention: 720h
//	logging:
//	  level: info
//	  protocol_log: /tmp/watch.clog
//
// Every field is optional. Defaults match the connection package.
package config
