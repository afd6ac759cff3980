package validation

import (
	"context"
	"fmt"
	"strings"

	"repo-sync/core/provider"

	"go.uber.org/zap"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindNoProviders means no repository provider is enabled.
	KindNoProviders Kind = "no_providers"
	// KindInvalidURL means no enabled provider accepts the URL.
	KindInvalidURL Kind = "invalid_url"
	// KindNotFound means the repository does not exist.
	KindNotFound Kind = "not_found"
	// KindDuplicate means the repository belongs to another owner.
	KindDuplicate Kind = "duplicate"
	// KindUnreachable means the provider could not be reached.
	KindUnreachable Kind = "unreachable"
)

// Diagnostic is a user facing validation message.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// Err returns the error of the taxonomy matching the diagnostic kind.
func (d Diagnostic) Err() error {
	switch d.Kind {
	case KindInvalidURL:
		return provider.ErrInvalidURL
	case KindNotFound:
		return provider.ErrNotFound
	case KindDuplicate:
		return provider.ErrDuplicateOwnership
	case KindUnreachable:
		return provider.ErrTransient
	default:
		return nil
	}
}

// OwnershipChecker answers the cross-user uniqueness question.
type OwnershipChecker interface {
	URLOwnedByOther(ctx context.Context, url, owner string) (bool, error)
}

// Validator validates repository URLs.
type Validator struct {
	registry *provider.Registry
	enabled  []string
	checker  OwnershipChecker
	logger   *zap.Logger
}

// New creates a Validator for the enabled provider kinds.
func New(registry *provider.Registry, enabled []string, checker OwnershipChecker, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		registry: registry,
		enabled:  enabled,
		checker:  checker,
		logger:   logger,
	}
}

// providers resolves the enabled set, logging kinds that cannot be resolved.
func (v *Validator) providers() []provider.Provider {
	providers, err := v.registry.Enabled(v.enabled)
	if err != nil {
		v.logger.Warn("Some enabled providers could not be resolved", zap.Error(err))
	}
	return providers
}

// HelpText returns the accepted URL formats of the enabled providers.
func (v *Validator) HelpText() string {
	return provider.HelpTexts(v.providers())
}

// ValidateURLs validates urls submitted by owner. The error is only set for
// unexpected failures of the ownership store.
func (v *Validator) ValidateURLs(ctx context.Context, urls []string, owner string) ([]Diagnostic, error) {
	providers := v.providers()
	if len(providers) == 0 {
		return []Diagnostic{{
			Kind:    KindNoProviders,
			Message: "There are no enabled repository plugins",
		}}, nil
	}

	diagnostics := []Diagnostic{}
	for _, raw := range urls {
		uri := strings.TrimSpace(raw)
		if uri == "" {
			continue
		}

		validated := false
		for _, p := range providers {
			if !p.Validate(uri) {
				continue
			}
			validated = true

			d, err := v.check(ctx, p, uri, owner)
			if err != nil {
				return nil, err
			}
			if d != nil {
				diagnostics = append(diagnostics, *d)
			}
		}

		if !validated {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:    KindInvalidURL,
				URL:     uri,
				Message: fmt.Sprintf("The repository url %s is not valid. Expected formats: %s", uri, provider.HelpTexts(providers)),
			})
		}
	}

	return diagnostics, nil
}

// check fetches uri through p and applies the ownership rule.
func (v *Validator) check(ctx context.Context, p provider.Provider, uri, owner string) (*Diagnostic, error) {
	md, err := p.Fetch(ctx, uri)
	switch {
	case err == nil && md != nil:
	case err == nil, provider.IsNotFound(err):
		return &Diagnostic{
			Kind:    KindNotFound,
			URL:     uri,
			Message: fmt.Sprintf("The repository at the url %s was not found.", uri),
		}, nil
	default:
		v.logger.Warn("Repository fetch failed during validation",
			zap.String("url", uri),
			zap.String("provider", p.Kind()),
			zap.Error(err),
		)
		return &Diagnostic{
			Kind:    KindUnreachable,
			URL:     uri,
			Message: fmt.Sprintf("The repository at the url %s could not be reached.", uri),
		}, nil
	}

	owned, err := v.checker.URLOwnedByOther(ctx, md.URL, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to check ownership of %s: %w", md.URL, err)
	}
	if owned {
		return &Diagnostic{
			Kind:    KindDuplicate,
			URL:     uri,
			Message: fmt.Sprintf("The repository at %s has been added by another user.", uri),
		}, nil
	}
	return nil, nil
}

// Messages returns the diagnostic messages.
func Messages(diagnostics []Diagnostic) []string {
	out := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, d.Message)
	}
	return out
}
