package httputil

import "testing"

func TestCredentialMatches(t *testing.T) {
	tests := []struct {
		name   string
		cred   Credential
		host   string
		scheme string
		realm  string
		want   bool
	}{
		{"exact host", Credential{HostPattern: "repo.example.com"}, "repo.example.com", "https", "", true},
		{"case insensitive", Credential{HostPattern: "Repo.Example.COM"}, "repo.example.com", "https", "", true},
		{"other host", Credential{HostPattern: "repo.example.com"}, "other.example.com", "https", "", false},
		{"wildcard subdomain", Credential{HostPattern: "*.example.com"}, "repo.example.com", "https", "", true},
		{"wildcard apex", Credential{HostPattern: "*.example.com"}, "example.com", "https", "", true},
		{"wildcard no match", Credential{HostPattern: "*.example.com"}, "example.org", "https", "", false},
		{"https only pass", Credential{HostPattern: "h", HTTPSOnly: true}, "h", "https", "", true},
		{"https only fail", Credential{HostPattern: "h", HTTPSOnly: true}, "h", "http", "", false},
		{"realm required no challenge", Credential{HostPattern: "h", Realm: "private"}, "h", "https", "", false},
		{"realm match", Credential{HostPattern: "h", Realm: "private"}, "h", "https", "private", true},
		{"realm mismatch", Credential{HostPattern: "h", Realm: "private"}, "h", "https", "other", false},
		{"realm-only without challenge", Credential{HostPattern: "h", RealmOnly: true}, "h", "https", "", false},
		{"realm-only with challenge", Credential{HostPattern: "h", RealmOnly: true}, "h", "https", "any", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Matches(tt.host, tt.scheme, tt.realm); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialStoreOrder(t *testing.T) {
	// First declared wins, even when a later record is more specific.
	store := NewCredentialStore(
		Credential{HostPattern: "*.example.com", Username: "first"},
		Credential{HostPattern: "repo.example.com", Username: "second"},
	)

	c, ok := store.Find("repo.example.com", "https", "")
	if !ok {
		t.Fatal("Find returned false")
	}
	if c.Username != "first" {
		t.Errorf("Username = %q, want first (configuration order)", c.Username)
	}
}

func TestCredentialStoreNil(t *testing.T) {
	var store *CredentialStore
	if _, ok := store.Find("h", "https", ""); ok {
		t.Error("nil store matched")
	}
}

func TestChallengeRealm(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`Basic realm="private"`, "private"},
		{`Basic realm=private`, "private"},
		{`Basic charset="UTF-8", realm="repo"`, "repo"},
		{`Bearer`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := challengeRealm(tt.header); got != tt.want {
				t.Errorf("challengeRealm(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
