package ymlremote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"repo-sync/core/provider"
	"repo-sync/core/storage"
	"repo-sync/core/utils"

	"github.com/minio/minio-go/v7"
	"gopkg.in/yaml.v3"
)

// Kind is the provider-kind identifier.
const Kind = "yml_remote"

// maxManifestSize bounds how much of a manifest is read.
const maxManifestSize = 1 << 20

// errTooLarge marks a manifest over maxManifestSize.
var errTooLarge = errors.New("manifest too large")

var (
	httpPattern = regexp.MustCompile(`^https?://[a-zA-Z0-9.-]+(:[0-9]+)?/[a-zA-Z0-9_.%/-]+\.yml$`)
	s3Pattern   = regexp.MustCompile(`^s3://[a-z0-9.-]+/[a-zA-Z0-9_.%/-]+\.yml$`)
)

// Options configures the provider. Storage is nil when object storage is
// disabled, in which case s3:// URIs are rejected.
type Options struct {
	Storage storage.Client
	Timeout time.Duration
}

// Provider reads single-repository YAML manifests.
type Provider struct {
	provider.Base
	storage storage.Client
	client  *http.Client
	timeout time.Duration
}

// New creates a remote manifest provider.
func New(opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		Base:    provider.NewBase(Kind, "Remote YML file", `https://anything.anything/anything/anything.yml (or "http")`),
		storage: opts.Storage,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Validate accepts http(s) URLs ending in .yml, plus s3:// objects when
// storage is configured.
func (p *Provider) Validate(uri string) bool {
	if httpPattern.MatchString(uri) {
		return true
	}
	return p.storage != nil && s3Pattern.MatchString(uri)
}

// Fetch downloads and parses the manifest at uri.
func (p *Provider) Fetch(ctx context.Context, uri string) (*provider.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.read(ctx, uri)
	if err != nil {
		return nil, err
	}

	md, err := Parse(data)
	if err != nil {
		return nil, provider.NotFoundf("manifest %s: %v", uri, err)
	}
	md.URL = uri
	return provider.Normalize(Kind, md), nil
}

func (p *Provider) read(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return p.readHTTP(ctx, uri)
	case strings.HasPrefix(uri, storage.Scheme+"://"):
		return p.readObject(ctx, uri)
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, provider.NotFoundf("manifest %s: %v", uri, err)
		}
		return readFile(u.Path)
	case strings.Contains(uri, "://"):
		return nil, provider.NotFoundf("manifest %s: unsupported scheme", uri)
	default:
		return readFile(uri)
	}
}

func (p *Provider) readHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, provider.NotFoundf("manifest %s: %v", uri, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.NewTransientError(Kind, uri, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return nil, provider.NewTransientError(Kind, uri, fmt.Errorf("unexpected status %d", resp.StatusCode))
	default:
		return nil, provider.NotFoundf("manifest %s: status %d", uri, resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if errors.Is(err, errTooLarge) {
		return nil, provider.NotFoundf("manifest %s: %v", uri, err)
	}
	if err != nil {
		return nil, provider.NewTransientError(Kind, uri, err)
	}
	return data, nil
}

func (p *Provider) readObject(ctx context.Context, uri string) ([]byte, error) {
	if p.storage == nil {
		return nil, provider.NotFoundf("manifest %s: object storage is disabled", uri)
	}
	bucket, object, err := storage.ParseObjectURI(uri)
	if err != nil {
		return nil, provider.NotFoundf("manifest %s: %v", uri, err)
	}

	obj, err := p.storage.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, p.objectError(uri, err)
	}
	defer obj.Close()

	// minio reports a missing key on first read, not on GetObject
	data, err := readLimited(obj)
	if errors.Is(err, errTooLarge) {
		return nil, provider.NotFoundf("manifest %s: %v", uri, err)
	}
	if err != nil {
		return nil, p.objectError(uri, err)
	}
	return data, nil
}

func (p *Provider) objectError(uri string, err error) error {
	if storage.IsNotFound(err) {
		return provider.NotFoundf("manifest %s", uri)
	}
	return provider.NewTransientError(Kind, uri, err)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, provider.NotFoundf("manifest %s", path)
		}
		return nil, provider.NewTransientError(Kind, path, err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if errors.Is(err, errTooLarge) {
		return nil, provider.NotFoundf("manifest %s: %v", path, err)
	}
	if err != nil {
		return nil, provider.NewTransientError(Kind, path, err)
	}
	return data, nil
}

// readLimited reads r whole, failing with errTooLarge instead of truncating.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxManifestSize {
		return nil, fmt.Errorf("%w: over %d bytes", errTooLarge, maxManifestSize)
	}
	return data, nil
}

// Parse decodes a manifest. The first top-level key names the repository and
// its value carries label, description and num_open_issues.
func Parse(data []byte) (*provider.Metadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) < 2 {
		return nil, errors.New("expected a mapping keyed by machine name")
	}

	name := strings.TrimSpace(root.Content[0].Value)
	if name == "" {
		return nil, errors.New("missing machine name")
	}

	var entry manifestEntry
	if body := root.Content[1]; body.Kind == yaml.MappingNode {
		if err := body.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}

	issues, err := openIssues(&entry.NumOpenIssues)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: num_open_issues: %w", name, err)
	}

	return &provider.Metadata{
		MachineName:   name,
		Label:         entry.Label,
		Description:   entry.Description,
		NumOpenIssues: issues,
	}, nil
}

// manifestEntry is the body of a manifest under its machine name.
type manifestEntry struct {
	Label         string    `yaml:"label"`
	Description   string    `yaml:"description"`
	NumOpenIssues yaml.Node `yaml:"num_open_issues"`
}

// openIssues reads the issue count. A missing or null value is zero; anything
// that is not a non-negative whole number is an error.
func openIssues(n *yaml.Node) (int, error) {
	if n.Kind == 0 || n.ShortTag() == "!!null" {
		return 0, nil
	}
	if n.Kind != yaml.ScalarNode {
		return 0, errors.New("expected a scalar")
	}

	var raw any
	if err := n.Decode(&raw); err != nil {
		return 0, err
	}
	issues, err := utils.ToInt(raw)
	if err != nil {
		return 0, err
	}
	if issues < 0 {
		return 0, fmt.Errorf("negative value %d", issues)
	}
	return issues, nil
}
