package reconcile

import "context"

// Store persists repository records.
type Store interface {
	// Find returns the record for (owner, machineName, source), or nil when none exists.
	Find(ctx context.Context, owner, machineName, source string) (*Record, error)
	// ListByOwner returns all records of owner.
	ListByOwner(ctx context.Context, owner string) ([]Record, error)
	// URLOwnedByOther reports whether a record with url belongs to an owner other than owner.
	URLOwnedByOther(ctx context.Context, url, owner string) (bool, error)
	// Create persists a new record and sets its ID. It returns
	// provider.ErrDuplicateOwnership when the record URL belongs to another
	// owner; the check and the insert are atomic.
	Create(ctx context.Context, rec *Record) error
	// Update overwrites an existing record, with the same ownership rule as Create.
	Update(ctx context.Context, rec *Record) error
	// Delete removes a record.
	Delete(ctx context.Context, rec *Record) error
}
