package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"repo-sync/core/provider"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// Kind is the provider-kind identifier.
const Kind = "gitlab"

var pattern = regexp.MustCompile(`^https://gitlab\.com/([a-zA-Z0-9_.-]+(?:/[a-zA-Z0-9_.-]+)+)`)

// Options configures the provider.
type Options struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Provider fetches projects from the GitLab REST API.
type Provider struct {
	provider.Base
	client  *gl.Client
	timeout time.Duration
}

// New creates a GitLab provider.
func New(opts Options) (*Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientOpts := []gl.ClientOptionFunc{
		gl.WithHTTPClient(&http.Client{Timeout: timeout}),
		// A failed pass is retried as a whole on the next schedule
		gl.WithoutRetries(),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, gl.WithBaseURL(opts.BaseURL))
	}

	client, err := gl.NewClient(opts.Token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &Provider{
		Base:    provider.NewBase(Kind, "GitLab", "https://gitlab.com/group/name"),
		client:  client,
		timeout: timeout,
	}, nil
}

// Validate accepts https://gitlab.com/<group>[/<subgroup>...]/<project> URLs.
func (p *Provider) Validate(uri string) bool {
	return pattern.MatchString(uri)
}

// MachineName derives the project path from uri.
func (p *Provider) MachineName(uri string) (string, bool) {
	m := pattern.FindStringSubmatch(uri)
	if m == nil {
		return "", false
	}
	path := m[1]
	// Web UI routes live below "/-/"
	if i := strings.Index(path, "/-"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSuffix(path, ".git")
	return path, strings.Contains(path, "/")
}

// Fetch retrieves project metadata.
func (p *Provider) Fetch(ctx context.Context, uri string) (*provider.Metadata, error) {
	pid, ok := p.MachineName(uri)
	if !ok {
		return nil, provider.NotFoundf("not a gitlab project url: %s", uri)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	project, resp, err := p.client.Projects.GetProject(pid, &gl.GetProjectOptions{}, gl.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, provider.NotFoundf("gitlab project %s", pid)
		}
		return nil, provider.NewTransientError(Kind, uri, err)
	}

	return provider.Normalize(Kind, &provider.Metadata{
		MachineName:   project.PathWithNamespace,
		Label:         project.Name,
		Description:   project.Description,
		NumOpenIssues: int(project.OpenIssuesCount),
		URL:           project.WebURL,
	}), nil
}
