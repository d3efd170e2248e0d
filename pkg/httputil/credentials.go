package httputil

import (
	"strings"
)

// Credential is one authentication record for a host.
type Credential struct {
	// HostPattern matches the request host. A leading "*." matches any
	// subdomain; otherwise the match is exact (case-insensitive).
	HostPattern string
	Username    string
	Password    string
	// Realm, when set, restricts the credential to servers whose
	// WWW-Authenticate challenge carries the same realm.
	Realm string
	// HTTPSOnly restricts the credential to https requests.
	HTTPSOnly bool
	// Auto sends the credential preemptively instead of waiting for a
	// 401 challenge.
	Auto bool
	// RealmOnly withholds the credential until the server issues a
	// realm challenge; plain host matching is not enough. This is the
	// negation of the configuration file's match-host flag.
	RealmOnly bool
	// PassOnRedirect keeps the credential attached across a cross-host
	// redirect. Off by default: redirects normally drop auth.
	PassOnRedirect bool
}

// matchesHost reports whether the pattern covers host.
func (c Credential) matchesHost(host string) bool {
	host = strings.ToLower(host)
	pattern := strings.ToLower(c.HostPattern)
	if sub, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == sub || strings.HasSuffix(host, "."+sub)
	}
	return host == pattern
}

// Matches reports whether the credential applies to a request. The realm
// argument is the server challenge realm, empty when no challenge was
// issued; a credential with a realm requirement only matches once the
// challenge confirms it.
func (c Credential) Matches(host, scheme, realm string) bool {
	if !c.matchesHost(host) {
		return false
	}
	if c.HTTPSOnly && scheme != "https" {
		return false
	}
	if c.RealmOnly && realm == "" {
		return false
	}
	if c.Realm != "" && c.Realm != realm {
		return false
	}
	return true
}

// CredentialStore holds credentials in configuration order. Matching is
// stable: the first record that matches wins, regardless of host-pattern
// specificity.
type CredentialStore struct {
	creds []Credential
}

// NewCredentialStore builds a store preserving the given order.
func NewCredentialStore(creds ...Credential) *CredentialStore {
	return &CredentialStore{creds: creds}
}

// Add appends credentials after the existing ones.
func (s *CredentialStore) Add(creds ...Credential) {
	s.creds = append(s.creds, creds...)
}

// Find returns the first credential matching the request, or false.
func (s *CredentialStore) Find(host, scheme, realm string) (Credential, bool) {
	if s == nil {
		return Credential{}, false
	}
	for _, c := range s.creds {
		if c.Matches(host, scheme, realm) {
			return c, true
		}
	}
	return Credential{}, false
}

// challengeRealm extracts the realm parameter from a WWW-Authenticate
// header value, or "" when absent.
func challengeRealm(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if i := strings.Index(strings.ToLower(part), "realm="); i >= 0 {
			v := part[i+len("realm="):]
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
