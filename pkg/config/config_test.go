package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scala-steward/coursier/pkg/cache"
	"github.com/scala-steward/coursier/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, env := range []string{EnvCache, EnvTTL, EnvMode, EnvCredentials} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TTL != cache.DefaultTTL {
		t.Errorf("TTL = %v, want default", cfg.TTL)
	}
	if cfg.CacheRoot == "" {
		t.Error("CacheRoot empty")
	}
	if len(cfg.Repos) != 1 {
		t.Errorf("Repos = %v, want central only", cfg.Repos)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(EnvCache, "/tmp/cache-root")
	t.Setenv(EnvTTL, "48h")
	t.Setenv(EnvMode, "offline")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheRoot != "/tmp/cache-root" {
		t.Errorf("CacheRoot = %q", cfg.CacheRoot)
	}
	if cfg.TTL != 48*time.Hour {
		t.Errorf("TTL = %v, want 48h", cfg.TTL)
	}
	if len(cfg.Policies) != 1 || cfg.Policies[0] != cache.LocalOnly {
		t.Errorf("Policies = %v, want [local-only]", cfg.Policies)
	}
}

func TestEnvironmentShadowsProperties(t *testing.T) {
	t.Setenv(EnvCache, "/from-env")

	cfg, err := Load("", map[string]string{"coursier.cache": "/from-prop", "coursier.ttl": "1h"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheRoot != "/from-env" {
		t.Errorf("CacheRoot = %q, environment must win over properties", cfg.CacheRoot)
	}
	if cfg.TTL != time.Hour {
		t.Errorf("TTL = %v, property must apply when env is unset", cfg.TTL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursier.toml")
	content := `[cache]
root = "/file-root"
ttl = "2h"
mode = "missing"

[[repositories]]
url = "https://repo.example.com/maven2"

[[repositories]]
url = "https://snapshots.example.com"
changing = true
format = "flat"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheRoot != "/file-root" {
		t.Errorf("CacheRoot = %q", cfg.CacheRoot)
	}
	if cfg.TTL != 2*time.Hour {
		t.Errorf("TTL = %v", cfg.TTL)
	}
	if len(cfg.Repos) != 2 {
		t.Fatalf("Repos = %v", cfg.Repos)
	}
	if !cfg.Repos[1].Changing {
		t.Error("second repo not marked changing")
	}
}

func TestParseCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.properties")
	content := `# repo credentials
host.central.host=repo.example.com
host.central.username=alice
host.central.password=s3cret
host.central.realm=private repo
host.central.https-only=true
host.central.auto=true
host.central.pass-on-redirect=false

host.mirror.host=mirror.example.org
host.mirror.username=bob
host.mirror.password=hunter2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	creds, err := ParseCredentialsFile(path)
	if err != nil {
		t.Fatalf("ParseCredentialsFile failed: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("got %d credentials, want 2", len(creds))
	}

	first := creds[0]
	if first.Host != "repo.example.com" || first.Username != "alice" ||
		first.Realm != "private repo" || !first.HTTPSOnly || !first.Auto || first.PassOnRedirect {
		t.Errorf("first credential = %+v", first)
	}
	if !first.MatchHost {
		t.Error("match-host must default to true")
	}
	if creds[1].Host != "mirror.example.org" {
		t.Errorf("declaration order not preserved: %+v", creds)
	}
}

func TestParseCredentialsFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"no equals", "host.a.host repo\n"},
		{"no host prefix", "central.host=x\n"},
		{"unknown field", "host.a.nope=x\n"},
		{"bad bool", "host.a.auto=maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ParseCredentialsFile(path); !errors.Is(err, errors.ErrCodeParse) {
				t.Errorf("err = %v, want PARSE_ERROR", err)
			}
		})
	}
}

func TestInlineCredentials(t *testing.T) {
	creds, err := LoadCredentials("repo.example.com(private) alice:s3cret\nmirror.example.org bob:pw")
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("got %d credentials", len(creds))
	}
	if creds[0].Host != "repo.example.com" || creds[0].Realm != "private" || creds[0].Password != "s3cret" {
		t.Errorf("first = %+v", creds[0])
	}
	if creds[1].Realm != "" {
		t.Errorf("second realm = %q, want empty", creds[1].Realm)
	}
}

func TestStoreOrder(t *testing.T) {
	store := Store([]Credential{
		{Host: "a.example.com", Username: "first", MatchHost: true},
		{Host: "a.example.com", Username: "second", MatchHost: true},
	})
	c, ok := store.Find("a.example.com", "https", "")
	if !ok || c.Username != "first" {
		t.Errorf("Find = %+v, %v; first declared must win", c, ok)
	}
}
