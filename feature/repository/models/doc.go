// Package models defines the GORM models persisted by the repository feature.
//
// Repository stores one reconciled repository per (owner, machine_name, source);
// the triple carries a unique index. The url column is indexed to answer the
// cross-user ownership check. OwnerURL stores the ordered list of URLs each
// owner declared.
package models
