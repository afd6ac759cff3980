package mocks

import (
	"context"
	"strings"
	"sync"

	"repo-sync/core/provider"
)

// Provider is an in-memory provider.Provider for tests. It accepts every URI
// starting with Prefix and serves Fetch from Results and Errors.
type Provider struct {
	provider.Base

	// Prefix is the URI prefix accepted by Validate.
	Prefix string

	mu      sync.Mutex
	results map[string]provider.Metadata
	errs    map[string]error
	fetches map[string]int
	holds   map[string]*hold
}

type hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewProvider creates a stub provider of the given kind.
func NewProvider(kind, prefix string) *Provider {
	return &Provider{
		Base:    provider.NewBase(kind, strings.ToUpper(kind), prefix+"vendor/name"),
		Prefix:  prefix,
		results: make(map[string]provider.Metadata),
		errs:    make(map[string]error),
		fetches: make(map[string]int),
		holds:   make(map[string]*hold),
	}
}

// Validate accepts URIs starting with Prefix.
func (p *Provider) Validate(uri string) bool {
	return p.Prefix != "" && strings.HasPrefix(uri, p.Prefix)
}

// Set registers the metadata returned for uri and clears any configured error.
func (p *Provider) Set(uri string, md provider.Metadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[uri] = md
	delete(p.errs, uri)
}

// Fail makes Fetch of uri return err.
func (p *Provider) Fail(uri string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[uri] = err
}

// Remove forgets uri so that Fetch reports it as not found.
func (p *Provider) Remove(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, uri)
	delete(p.errs, uri)
}

// Fetches returns how often uri was fetched.
func (p *Provider) Fetches(uri string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches[uri]
}

// Hold makes Fetch of uri wait until release is called or its context ends.
// entered is closed once a fetch is waiting.
func (p *Provider) Hold(uri string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	p.mu.Lock()
	p.holds[uri] = h
	p.mu.Unlock()

	var once sync.Once
	return h.entered, func() {
		once.Do(func() { close(h.release) })
	}
}

// Fetch implements provider.Provider.
func (p *Provider) Fetch(ctx context.Context, uri string) (*provider.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, provider.NewTransientError(p.Kind(), uri, err)
	}

	p.mu.Lock()
	h := p.holds[uri]
	p.mu.Unlock()
	if h != nil {
		h.once.Do(func() { close(h.entered) })
		select {
		case <-h.release:
		case <-ctx.Done():
			return nil, provider.NewTransientError(p.Kind(), uri, ctx.Err())
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches[uri]++

	if err, ok := p.errs[uri]; ok {
		return nil, err
	}
	md, ok := p.results[uri]
	if !ok {
		return nil, provider.NotFoundf("%s", uri)
	}
	return provider.Normalize(p.Kind(), &md), nil
}
