// Package session issues and rotates account sessions.
//
// A session is a pair of signed tokens: a short-lived access token and a
// long-lived renewal token, each signed with its own secret (HS256 JWT by
// default, PASETO v4.public optionally). The credential store keeps only the
// fingerprint of the current renewal token (HMAC-SHA256 when
// VIDTUBE_TOKEN_HMAC_KEY is set; otherwise SHA-256 for dev).
//
// Rotation is a compare-and-swap on that fingerprint: a renewal token can be
// exchanged once, and of two concurrent exchanges only one wins.
//
// Transport (HTTP) integration is out of scope here.
package session
