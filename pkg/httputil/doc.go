// Package httputil provides the HTTP transport used by the artifact cache.
//
// # Overview
//
// This package provides infrastructure shared by every remote fetch:
//
//   - [Downloader]: GET/HEAD with manual redirect handling, Basic auth,
//     conditional revalidation, and per-host circuit breaking
//   - [Retry]: automatic retry with exponential backoff and a separate
//     budget for TLS handshake failures
//   - [CredentialStore]: host- and realm-scoped credential matching
//
// # Retry
//
// Transient failures (network errors, 5xx responses) are wrapped in
// [RetryableError] by the downloader, and [Retry] re-attempts them on an
// exponential schedule (base 250 ms, doubling). TLS handshake failures
// draw from their own budget, since they usually resolve on a different
// connection rather than with more patience.
//
// # Credentials
//
// Credentials are matched in configuration order: the first record whose
// host pattern, scheme filter, and (when the server issued a challenge)
// realm all pass is used. Credentials marked auto are sent preemptively;
// others only answer a 401 challenge. On a cross-host redirect the
// credential is dropped unless it is marked pass-on-redirect.
package httputil
