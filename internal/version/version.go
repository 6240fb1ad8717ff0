// Package version records the client version written into update envelopes.
package version

// Version is stamped into the client_version field of every envelope this
// client produces. Envelopes reconstructed from bare legacy payloads carry
// "legacy" instead.
const Version = "0.5.1"
