package repository

import (
	"fmt"

	"repo-sync/core/config"
	"repo-sync/core/provider"
	"repo-sync/core/storage"
	"repo-sync/feature/repository/providers/github"
	"repo-sync/feature/repository/providers/gitlab"
	"repo-sync/feature/repository/providers/ymlremote"
)

// RegisterProviders registers every built-in provider kind on reg. Secrets are
// resolved when a provider is first built. objects may be nil when object
// storage is disabled.
func RegisterProviders(reg *provider.Registry, cfg config.ProvidersConfig, objects storage.Client) {
	reg.Register(github.Kind, func() (provider.Provider, error) {
		token, err := config.ResolveSecret(cfg.GitHub.Token, cfg.GitHub.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("github token: %w", err)
		}
		return github.New(github.Options{
			Token:   token,
			BaseURL: cfg.GitHub.BaseURL,
			Timeout: cfg.Timeout(),
		})
	})

	reg.Register(gitlab.Kind, func() (provider.Provider, error) {
		token, err := config.ResolveSecret(cfg.GitLab.Token, cfg.GitLab.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("gitlab token: %w", err)
		}
		return gitlab.New(gitlab.Options{
			Token:   token,
			BaseURL: cfg.GitLab.BaseURL,
			Timeout: cfg.Timeout(),
		})
	})

	reg.Register(ymlremote.Kind, func() (provider.Provider, error) {
		return ymlremote.New(ymlremote.Options{
			Storage: objects,
			Timeout: cfg.Timeout(),
		}), nil
	})
}
