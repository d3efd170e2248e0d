package cache

import (
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
)

// Policy governs whether and when the cache contacts the network for a
// URL. Policies are evaluated in the order the caller specifies; the
// first one that yields a decision wins.
type Policy int

const (
	// LocalOnly serves only from the cache; a missing file fails with
	// NOT_IN_CACHE.
	LocalOnly Policy = iota
	// LocalUpdateChanging serves from the cache, but revalidates
	// changing URLs upstream once their last probe is older than the
	// TTL.
	LocalUpdateChanging
	// LocalUpdate revalidates every URL past the TTL, changing or not.
	LocalUpdate
	// Update re-downloads unconditionally.
	Update
	// FetchMissing downloads absent files and keeps present ones.
	FetchMissing
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case LocalOnly:
		return "local-only"
	case LocalUpdateChanging:
		return "local-update-changing"
	case LocalUpdate:
		return "local-update"
	case Update:
		return "update"
	case FetchMissing:
		return "fetch-missing"
	}
	return "unknown"
}

// DefaultPolicies is the policy chain used when the caller specifies
// none: serve from cache, revalidate stale changing artifacts, download
// what is missing.
func DefaultPolicies() []Policy {
	return []Policy{LocalUpdateChanging, FetchMissing}
}

// ParsePolicies parses a cache-mode string into a policy chain. Tokens
// may be separated by commas or whitespace:
//
//	default          -> local-update-changing, fetch-missing
//	update           -> local-update, fetch-missing
//	update-changing  -> local-update-changing, fetch-missing
//	force            -> update
//	missing          -> fetch-missing
//	offline          -> local-only
func ParsePolicies(s string) ([]Policy, error) {
	var out []Policy
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		switch strings.ToLower(tok) {
		case "default":
			out = append(out, LocalUpdateChanging, FetchMissing)
		case "update":
			out = append(out, LocalUpdate, FetchMissing)
		case "update-changing":
			out = append(out, LocalUpdateChanging, FetchMissing)
		case "force":
			out = append(out, Update)
		case "missing":
			out = append(out, FetchMissing)
		case "offline":
			out = append(out, LocalOnly)
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache mode %q", tok)
		}
	}
	if len(out) == 0 {
		return DefaultPolicies(), nil
	}
	return out, nil
}
