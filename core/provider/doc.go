// Package provider defines the source provider plugins that turn a user supplied
// repository URL into normalized repository metadata.
//
// # Provider Interface
//
// Every source kind (hosted git service, remote manifest file, ...) implements
// the Provider interface:
//
//	type Provider interface {
//	    Kind() string
//	    Label() string
//	    Validate(uri string) bool
//	    Fetch(ctx context.Context, uri string) (*Metadata, error)
//	    HelpText() string
//	}
//
// Validate is a pure pattern match and never performs I/O. Fetch performs the
// network or file I/O and reports failures through the typed errors of this
// package: ErrNotFound when the target does not exist or cannot be parsed, and
// *TransientError for network, authentication and remote service failures.
//
// Concrete providers embed Base, which supplies the shared accessors and a
// Validate that rejects everything. A provider that forgets to supply its own
// matcher therefore never accepts a URL.
//
// # Registry
//
// The Registry maps provider-kind identifiers to factories. Instances are built
// lazily on first lookup and reused afterwards, so resolving the enabled set on
// every reconciliation pass is cheap and safe for concurrent use.
//
//	reg := provider.NewRegistry()
//	reg.Register("github", func() (provider.Provider, error) { return github.New(opts), nil })
//	providers, err := reg.Enabled([]string{"github", "yml_remote"})
package provider
