package reconcile

import "repo-sync/core/provider"

// Record is a persisted repository record.
type Record struct {
	// ID is the store identity of the record. Zero for records not yet created.
	ID uint `json:"id"`

	// Owner is the account the record belongs to.
	Owner string `json:"owner"`

	// Hash is the content fingerprint of the metadata fields.
	Hash string `json:"hash"`

	provider.Metadata
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionCreate creates a record for a newly observed repository.
	ActionCreate ActionType = "create"
	// ActionUpdate overwrites a record whose content hash changed.
	ActionUpdate ActionType = "update"
	// ActionDelete deletes a record no longer reported by any provider.
	ActionDelete ActionType = "delete"
)

// Action represents a planned mutation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// MachineName identifies the repository.
	MachineName string `json:"machine_name"`

	// Source is the provider kind of the repository.
	Source string `json:"source"`

	// URL is the repository URL.
	URL string `json:"url"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Record is the record to write or delete.
	Record *Record `json:"-"`
}

// FailureKind classifies a per-URL failure.
type FailureKind string

const (
	// FailureNotFound means the provider reported the repository as missing or unparsable.
	FailureNotFound FailureKind = "not_found"
	// FailureTransient means a network, authentication or remote failure.
	FailureTransient FailureKind = "transient"
	// FailureDuplicate means the repository URL belongs to another owner.
	FailureDuplicate FailureKind = "duplicate"
	// FailureInvalidURL means no enabled provider accepts the URL.
	FailureInvalidURL FailureKind = "invalid_url"
	// FailureUnknownProvider means the configuration enables an unregistered provider kind.
	FailureUnknownProvider FailureKind = "unknown_provider"
)

// Failure is a per-URL (or per-provider) failure collected during a pass.
type Failure struct {
	URL      string      `json:"url,omitempty"`
	Provider string      `json:"provider,omitempty"`
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason"`
}

// Outcome is the result of a reconciliation pass for one owner.
type Outcome struct {
	// Owner is the reconciled account.
	Owner string `json:"owner"`

	// DryRun reports whether the plan was computed without being applied.
	DryRun bool `json:"dry_run"`

	// NoProviders is set when the enabled provider set resolved to nothing.
	NoProviders bool `json:"no_providers"`

	// Gathered is the number of distinct repositories fetched.
	Gathered int `json:"gathered"`

	// Created counts create actions.
	Created int `json:"created"`

	// Updated counts update actions.
	Updated int `json:"updated"`

	// Deleted counts delete actions.
	Deleted int `json:"deleted"`

	// Unchanged counts gathered repositories whose record is already current.
	Unchanged int `json:"unchanged"`

	// Retained counts records kept because their URL failed transiently.
	Retained int `json:"retained"`

	// Applied is the number of actions executed. Always zero in dry-run mode.
	Applied int `json:"applied"`

	// Failures lists the per-URL failures.
	Failures []Failure `json:"failures"`

	// Actions lists the planned mutations in execution order.
	Actions []Action `json:"actions"`
}

// Changes returns the number of planned mutations.
func (o *Outcome) Changes() int {
	return o.Created + o.Updated + o.Deleted
}

// Options controls engine behavior.
type Options struct {
	// Enabled is the ordered set of enabled provider kinds.
	Enabled []string

	// DryRun computes plans without applying them.
	DryRun bool

	// Workers bounds concurrent fetches. Values below one mean one.
	Workers int
}
