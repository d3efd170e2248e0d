package cli

import (
	"github.com/scala-steward/coursier/pkg/cache"
	"github.com/scala-steward/coursier/pkg/config"
	"github.com/scala-steward/coursier/pkg/httputil"
	"github.com/scala-steward/coursier/pkg/repo"
)

// loadConfig merges flags over the environment and config file.
// Flags win; environment variables shadow process properties.
func loadConfig(f *commonFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile, f.properties())
	if err != nil {
		return nil, err
	}

	if f.cacheRoot != "" {
		cfg.CacheRoot = f.cacheRoot
	}
	if f.mode != "" {
		policies, err := cache.ParsePolicies(f.mode)
		if err != nil {
			return nil, err
		}
		cfg.Policies = policies
	}
	if f.ttl != "" {
		ttl, err := parseTTL(f.ttl)
		if err != nil {
			return nil, err
		}
		cfg.TTL = ttl
	}
	if len(f.repos) > 0 {
		repos := make([]repo.Repository, 0, len(f.repos))
		for _, url := range f.repos {
			repos = append(repos, repo.New(url))
		}
		cfg.Repos = repos
	}
	return cfg, nil
}

func credentialStore(cfg *config.Config) *httputil.CredentialStore {
	return config.Store(cfg.Credentials)
}
