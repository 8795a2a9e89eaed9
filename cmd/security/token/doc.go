// Package token derives the stored fingerprint of renewal tokens.
//
// The credential store never sees a raw renewal token. It keeps a 64-char hex
// digest: HMAC-SHA256(token, VIDTUBE_TOKEN_HMAC_KEY) when a key is configured,
// SHA-256(token) otherwise. Production startup requires the HMAC form.
package token
