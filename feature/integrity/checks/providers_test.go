package checks

import (
	"errors"
	"testing"

	"repo-sync/core/provider"
	"repo-sync/core/provider/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckProviders(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("github", func() (provider.Provider, error) {
		return mocks.NewProvider("github", "https://github.com/"), nil
	})
	reg.Register("gitlab", func() (provider.Provider, error) {
		return nil, errors.New("token file missing")
	})

	t.Run("all resolved", func(t *testing.T) {
		report, err := CheckProviders(reg, []string{"github"})
		require.NoError(t, err)
		assert.True(t, report.Matched)
		assert.Equal(t, []string{"github", "gitlab"}, report.Registered)
		require.Len(t, report.Providers, 1)
		assert.Equal(t, "ok", report.Providers[0].Status)
		assert.Equal(t, "https://github.com/vendor/name", report.Providers[0].HelpText)
	})

	t.Run("unknown and broken kinds", func(t *testing.T) {
		report, err := CheckProviders(reg, []string{"github", "bitbucket", "gitlab"})
		require.NoError(t, err)
		assert.False(t, report.Matched)
		require.Len(t, report.Providers, 3)
		assert.Equal(t, "error", report.Providers[1].Status)
		assert.Contains(t, report.Providers[1].Error, "unknown provider kind")
		assert.Equal(t, "error", report.Providers[2].Status)
		assert.Contains(t, report.Providers[2].Error, "token file missing")
	})

	t.Run("nothing enabled", func(t *testing.T) {
		report, err := CheckProviders(reg, nil)
		require.NoError(t, err)
		assert.False(t, report.Matched)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := CheckProviders(nil, []string{"github"})
		assert.Error(t, err)
	})
}
