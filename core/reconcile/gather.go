package reconcile

import (
	"context"
	"strings"

	"repo-sync/core/provider"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// fetchTask is one (url, provider) combination of the gather step.
type fetchTask struct {
	url      string
	provider provider.Provider

	metadata *provider.Metadata
	err      error
	matched  bool
}

// gathered is the merged result of the gather step.
type gathered struct {
	// items maps machine name to the last fetched metadata.
	items map[string]provider.Metadata
	// order lists machine names by first appearance.
	order []string
	// failures collects per-URL failures.
	failures []Failure
	// protectedURLs and protectedNames identify records that must survive the
	// delete step because their URL failed transiently.
	protectedURLs  map[string]struct{}
	protectedNames map[string]struct{}
}

func (g *gathered) protects(rec Record) bool {
	if _, ok := g.protectedNames[rec.MachineName]; ok {
		return true
	}
	_, ok := g.protectedURLs[normalizeURL(rec.URL)]
	return ok
}

// declaredURLs trims urls, drops blanks and collapses duplicates, keeping the
// first occurrence.
func declaredURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return strings.ToLower(u)
}

// gather fetches metadata for every declared URL from every enabled provider.
// It returns the context error if ctx ends before all fetches completed.
func (e *Engine) gather(ctx context.Context, providers []provider.Provider, urls []string) (*gathered, error) {
	var tasks []*fetchTask
	for _, u := range declaredURLs(urls) {
		for _, p := range providers {
			tasks = append(tasks, &fetchTask{url: u, provider: p})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for _, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !task.provider.Validate(task.url) {
				return nil
			}
			task.matched = true
			task.metadata, task.err = task.provider.Fetch(gctx, task.url)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &gathered{
		items:          make(map[string]provider.Metadata),
		protectedURLs:  make(map[string]struct{}),
		protectedNames: make(map[string]struct{}),
	}

	matchedURLs := make(map[string]bool)
	for _, task := range tasks {
		if !task.matched {
			if _, ok := matchedURLs[task.url]; !ok {
				matchedURLs[task.url] = false
			}
			continue
		}
		matchedURLs[task.url] = true

		if task.err != nil {
			result.addFailure(e.logger, task)
			continue
		}
		if task.metadata == nil || task.metadata.MachineName == "" {
			result.failures = append(result.failures, Failure{
				URL:      task.url,
				Provider: task.provider.Kind(),
				Kind:     FailureNotFound,
				Reason:   "provider returned no repository",
			})
			continue
		}

		md := *task.metadata
		if md.Source == "" {
			md.Source = task.provider.Kind()
		}
		if _, exists := result.items[md.MachineName]; !exists {
			result.order = append(result.order, md.MachineName)
		}
		result.items[md.MachineName] = md
	}

	for _, u := range declaredURLs(urls) {
		if matched, ok := matchedURLs[u]; ok && !matched && len(providers) > 0 {
			result.failures = append(result.failures, Failure{
				URL:    u,
				Kind:   FailureInvalidURL,
				Reason: "no enabled provider accepts this url",
			})
		}
	}

	return result, nil
}

func (g *gathered) addFailure(logger *zap.Logger, task *fetchTask) {
	kind := task.provider.Kind()
	f := Failure{URL: task.url, Provider: kind, Reason: task.err.Error()}

	// Anything that is not a typed not-found outcome keeps the stored record alive.
	if provider.IsNotFound(task.err) {
		f.Kind = FailureNotFound
	} else {
		f.Kind = FailureTransient
		g.protectedURLs[normalizeURL(task.url)] = struct{}{}
		if id, ok := task.provider.(provider.Identifier); ok {
			if name, ok := id.MachineName(task.url); ok {
				g.protectedNames[name] = struct{}{}
			}
		}
	}

	logger.Warn("Repository fetch failed",
		zap.String("url", task.url),
		zap.String("provider", kind),
		zap.String("kind", string(f.Kind)),
		zap.Error(task.err),
	)
	g.failures = append(g.failures, f)
}
