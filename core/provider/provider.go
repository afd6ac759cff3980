package provider

import "context"

// Metadata is the normalized description of one repository as reported by a
// provider. It is produced fresh on every reconciliation pass.
type Metadata struct {
	// MachineName uniquely identifies the repository within its source (e.g. "owner/repo").
	MachineName string `json:"machine_name"`

	// Label is the display name of the repository.
	Label string `json:"label"`

	// Description is the free-form repository description.
	Description string `json:"description"`

	// NumOpenIssues is the number of open issues reported by the source.
	NumOpenIssues int `json:"num_open_issues"`

	// Source is the kind of the provider that produced this metadata.
	Source string `json:"source"`

	// URL is the canonical URL of the repository.
	URL string `json:"url"`
}

// Provider validates, fetches and normalizes repositories of one source kind.
type Provider interface {
	// Kind returns the provider-kind identifier (e.g. "github").
	Kind() string
	// Label returns a human readable provider name.
	Label() string
	// Validate reports whether uri matches the shape this provider understands.
	// It must not perform any I/O.
	Validate(uri string) bool
	// Fetch retrieves the metadata of the repository at uri.
	Fetch(ctx context.Context, uri string) (*Metadata, error)
	// HelpText returns an example of a URI this provider accepts.
	HelpText() string
}

// Identifier is implemented by providers able to derive the machine name of a
// repository from its URI alone.
type Identifier interface {
	MachineName(uri string) (string, bool)
}

// Base carries the fields shared by every provider. Embedding types must
// override Validate.
type Base struct {
	kind     string
	label    string
	helpText string
}

// NewBase creates a Base for the given kind.
func NewBase(kind, label, helpText string) Base {
	return Base{kind: kind, label: label, helpText: helpText}
}

// Kind returns the provider-kind identifier.
func (b Base) Kind() string {
	return b.kind
}

// Label returns the provider label.
func (b Base) Label() string {
	return b.label
}

// HelpText returns the example URI.
func (b Base) HelpText() string {
	return b.helpText
}

// Validate rejects every URI.
func (b Base) Validate(uri string) bool {
	return false
}

// Normalize fills Source on metadata produced by the provider of the given kind.
func Normalize(kind string, md *Metadata) *Metadata {
	if md == nil {
		return nil
	}
	md.Source = kind
	if md.NumOpenIssues < 0 {
		md.NumOpenIssues = 0
	}
	return md
}
