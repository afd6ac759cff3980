package reconcile_test

import (
	"testing"

	"repo-sync/core/provider"
	"repo-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	md := provider.Metadata{
		MachineName:   "acme/widgets",
		Label:         "widgets",
		Description:   "A widget repo",
		NumOpenIssues: 3,
		Source:        "github",
		URL:           "https://github.com/acme/widgets",
	}

	h := reconcile.ContentHash(md)
	assert.Len(t, h, 64)
	assert.Equal(t, h, reconcile.ContentHash(md), "hash must be stable")

	renamed := md
	renamed.MachineName = "acme/other"
	assert.Equal(t, h, reconcile.ContentHash(renamed), "machine name is the key, not content")

	moved := md
	moved.Source = "gitlab"
	assert.NotEqual(t, h, reconcile.ContentHash(moved), "source participates in the hash")

	swapped := md
	swapped.Label, swapped.Description = md.Description, md.Label
	assert.NotEqual(t, h, reconcile.ContentHash(swapped))
}
