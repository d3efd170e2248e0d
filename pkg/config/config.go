// Package config loads runtime configuration: environment variables,
// the credentials file, and the optional TOML configuration file used by
// the CLI.
//
// Precedence, highest first: command-line flags (handled by the CLI),
// environment variables, process properties supplied via -D-style
// flags, the configuration file, then built-in defaults.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/scala-steward/coursier/pkg/cache"
	"github.com/scala-steward/coursier/pkg/errors"
	"github.com/scala-steward/coursier/pkg/repo"
)

// Environment variables recognized by the loader.
const (
	EnvCache       = "COURSIER_CACHE"
	EnvTTL         = "COURSIER_TTL"
	EnvMode        = "COURSIER_MODE"
	EnvCredentials = "COURSIER_CREDENTIALS"
)

// Config is the merged runtime configuration.
type Config struct {
	CacheRoot   string
	TTL         time.Duration
	Policies    []cache.Policy
	Credentials []Credential
	Repos       []repo.Repository
}

// File is the TOML configuration file shape.
type File struct {
	Cache struct {
		Root string `toml:"root"`
		TTL  string `toml:"ttl"`
		Mode string `toml:"mode"`
	} `toml:"cache"`
	Repositories []struct {
		URL      string `toml:"url"`
		Changing bool   `toml:"changing"`
		Format   string `toml:"format"`
	} `toml:"repositories"`
}

// Credential mirrors the httputil credential record; config owns the
// parsing, httputil the matching. MatchHost lets the credential match by
// host alone; when false it only answers realm challenges. Both parsers
// set it to true unless the file says match-host=false; a Credential
// built directly has it false.
type Credential struct {
	Host           string
	Username       string
	Password       string
	Realm          string
	HTTPSOnly      bool
	Auto           bool
	PassOnRedirect bool
	MatchHost      bool
}

// Load builds the configuration from the optional TOML file at path (""
// skips it), the environment, and process properties. Properties shadow
// the environment with lower precedence: an environment variable wins
// over the same setting supplied as a property.
func Load(path string, props map[string]string) (*Config, error) {
	cfg := &Config{
		TTL:      cache.DefaultTTL,
		Policies: cache.DefaultPolicies(),
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	lookup := func(env, prop string) (string, bool) {
		if v, ok := os.LookupEnv(env); ok {
			return v, true
		}
		if v, ok := props[prop]; ok {
			return v, true
		}
		return "", false
	}

	if v, ok := lookup(EnvCache, "coursier.cache"); ok {
		cfg.CacheRoot = v
	}
	if cfg.CacheRoot == "" {
		cfg.CacheRoot = DefaultCacheRoot()
	}

	if v, ok := lookup(EnvTTL, "coursier.ttl"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid TTL %q", v)
		}
		cfg.TTL = ttl
	}

	if v, ok := lookup(EnvMode, "coursier.mode"); ok {
		policies, err := cache.ParsePolicies(v)
		if err != nil {
			return nil, err
		}
		cfg.Policies = policies
	}

	if v, ok := lookup(EnvCredentials, "coursier.credentials"); ok {
		creds, err := LoadCredentials(v)
		if err != nil {
			return nil, err
		}
		cfg.Credentials = creds
	}

	if len(cfg.Repos) == 0 {
		cfg.Repos = []repo.Repository{repo.Central}
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "loading config file %s", path)
	}

	if f.Cache.Root != "" {
		c.CacheRoot = f.Cache.Root
	}
	if f.Cache.TTL != "" {
		ttl, err := time.ParseDuration(f.Cache.TTL)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid ttl in %s", path)
		}
		c.TTL = ttl
	}
	if f.Cache.Mode != "" {
		policies, err := cache.ParsePolicies(f.Cache.Mode)
		if err != nil {
			return err
		}
		c.Policies = policies
	}

	for _, r := range f.Repositories {
		rp := repo.New(r.URL)
		rp.Changing = r.Changing
		if r.Format == "flat" {
			rp.Dialect = repo.DialectFlat
		}
		c.Repos = append(c.Repos, rp)
	}
	return nil
}

// DefaultCacheRoot is ~/.cache/coursier/v1, or a relative fallback when
// the home directory is unknown.
func DefaultCacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".coursier-cache"
	}
	return home + "/.cache/coursier/v1"
}
