package reconcile

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"repo-sync/core/provider"
)

// hashedFields lists, in order, the metadata fields covered by the content hash.
type hashedFields struct {
	Label         string `json:"label"`
	Description   string `json:"description"`
	NumOpenIssues int    `json:"num_open_issues"`
	Source        string `json:"source"`
	URL           string `json:"url"`
}

// ContentHash returns the hex sha256 fingerprint of the mutable metadata fields.
// The machine name is the record key and is not part of the hash.
func ContentHash(md provider.Metadata) string {
	data, _ := json.Marshal(hashedFields{
		Label:         md.Label,
		Description:   md.Description,
		NumOpenIssues: md.NumOpenIssues,
		Source:        md.Source,
		URL:           md.URL,
	})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
