package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"repo-sync/core/provider"

	gh "github.com/google/go-github/v82/github"
)

// Kind is the provider-kind identifier.
const Kind = "github"

var pattern = regexp.MustCompile(`^https://github\.com/([a-zA-Z0-9_-]+)/([a-zA-Z0-9_.-]+)`)

// Options configures the provider. Token is optional; anonymous requests are
// subject to lower rate limits.
type Options struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Provider fetches repositories from the GitHub REST API.
type Provider struct {
	provider.Base
	client  *gh.Client
	timeout time.Duration
}

// New creates a GitHub provider.
func New(opts Options) (*Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := gh.NewClient(&http.Client{Timeout: timeout})
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &Provider{
		Base:    provider.NewBase(Kind, "GitHub", "https://github.com/vendor/name"),
		client:  client,
		timeout: timeout,
	}, nil
}

// Validate accepts https://github.com/<owner>/<repo> URLs.
func (p *Provider) Validate(uri string) bool {
	return pattern.MatchString(uri)
}

// MachineName derives "owner/repo" from uri.
func (p *Provider) MachineName(uri string) (string, bool) {
	owner, repo, ok := split(uri)
	if !ok {
		return "", false
	}
	return owner + "/" + repo, true
}

func split(uri string) (owner, repo string, ok bool) {
	m := pattern.FindStringSubmatch(uri)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSuffix(m[2], ".git"), true
}

// Fetch retrieves repository metadata.
func (p *Provider) Fetch(ctx context.Context, uri string) (*provider.Metadata, error) {
	owner, name, ok := split(uri)
	if !ok {
		return nil, provider.NotFoundf("not a github repository url: %s", uri)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	repo, resp, err := p.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, provider.NotFoundf("github repository %s/%s", owner, name)
		}
		var rateErr *gh.RateLimitError
		if errors.As(err, &rateErr) {
			return nil, provider.NewTransientError(Kind, uri, fmt.Errorf("rate limited until %s", rateErr.Rate.Reset.Time.Format(time.RFC3339)))
		}
		return nil, provider.NewTransientError(Kind, uri, err)
	}

	return provider.Normalize(Kind, &provider.Metadata{
		MachineName:   repo.GetFullName(),
		Label:         repo.GetName(),
		Description:   repo.GetDescription(),
		NumOpenIssues: repo.GetOpenIssuesCount(),
		URL:           repo.GetHTMLURL(),
	}), nil
}
