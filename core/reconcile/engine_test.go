package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"repo-sync/core/notify"
	"repo-sync/core/provider"
	"repo-sync/core/provider/mocks"
	"repo-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	owner      = "alice"
	widgetsURL = "https://github.com/acme/widgets"
	gadgetsURL = "https://github.com/acme/gadgets"
	batmanURL  = "https://manifests.example.com/batman-repo.yml"
)

func widgets(issues int) provider.Metadata {
	return provider.Metadata{
		MachineName:   "acme/widgets",
		Label:         "widgets",
		Description:   "A widget repo",
		NumOpenIssues: issues,
		URL:           widgetsURL,
	}
}

type fixture struct {
	gh     *mocks.Provider
	yml    *mocks.Provider
	reg    *provider.Registry
	store  *memStore
	events *notify.Recorder
}

func newFixture() *fixture {
	f := &fixture{
		gh:     mocks.NewProvider("github", "https://github.com/"),
		yml:    mocks.NewProvider("yml_remote", "https://manifests.example.com/"),
		reg:    provider.NewRegistry(),
		store:  newMemStore(),
		events: notify.NewRecorder(0),
	}
	f.reg.Register("github", func() (provider.Provider, error) { return f.gh, nil })
	f.reg.Register("yml_remote", func() (provider.Provider, error) { return f.yml, nil })
	return f
}

func (f *fixture) engine(dryRun bool) *reconcile.Engine {
	return f.engineWith(reconcile.Options{
		Enabled: []string{"github", "yml_remote"},
		DryRun:  dryRun,
		Workers: 4,
	})
}

func (f *fixture) engineWith(opts reconcile.Options) *reconcile.Engine {
	return reconcile.New(f.reg, f.store, f.events, zap.NewNop(), opts)
}

func TestReconcile_CreatesNewRepository(t *testing.T) {
	f := newFixture()
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 0, out.Updated)
	assert.Equal(t, 0, out.Deleted)
	assert.Equal(t, 1, out.Applied)
	assert.Empty(t, out.Failures)

	rec := f.store.get(owner, "acme/widgets")
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.NumOpenIssues)
	assert.Equal(t, "github", rec.Source)
	assert.Equal(t, reconcile.ContentHash(rec.Metadata), rec.Hash)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.ActionCreated, events[0].Action)
	assert.Equal(t, rec.ID, events[0].Record.ID)
}

func TestReconcile_UpdatesChangedRepository(t *testing.T) {
	f := newFixture()
	engine := f.engine(false)
	f.gh.Set(widgetsURL, widgets(3))
	_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)
	before := f.store.get(owner, "acme/widgets")

	f.gh.Set(widgetsURL, widgets(5))
	out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 1, out.Updated)
	assert.Equal(t, 0, out.Deleted)

	after := f.store.get(owner, "acme/widgets")
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, 5, after.NumOpenIssues)
	assert.NotEqual(t, before.Hash, after.Hash)
	assert.Equal(t, notify.ActionUpdated, f.events.Events()[1].Action)
}

func TestReconcile_DeletesRemovedRepository(t *testing.T) {
	f := newFixture()
	engine := f.engine(false)
	f.gh.Set(widgetsURL, widgets(3))
	_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	out, err := engine.Reconcile(context.Background(), owner, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 0, out.Updated)
	assert.Equal(t, 1, out.Deleted)
	assert.Empty(t, f.store.names(owner))
	assert.Equal(t, notify.ActionDeleted, f.events.Events()[1].Action)
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture()
	engine := f.engine(false)
	f.gh.Set(widgetsURL, widgets(3))
	f.yml.Set(batmanURL, provider.Metadata{MachineName: "batman-repo", Label: "The Batman repository", URL: batmanURL})
	urls := []string{widgetsURL, batmanURL}

	first, err := engine.Reconcile(context.Background(), owner, urls)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := engine.Reconcile(context.Background(), owner, urls)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Changes())
	assert.Equal(t, 2, second.Unchanged)
	assert.Empty(t, second.Actions)
}

func TestReconcile_Converges(t *testing.T) {
	f := newFixture()
	f.store.seed(reconcile.Record{Owner: owner, Hash: "stale", Metadata: provider.Metadata{MachineName: "old/repo", Source: "github", URL: "https://github.com/old/repo"}})
	f.store.seed(reconcile.Record{Owner: "bob", Hash: "other", Metadata: provider.Metadata{MachineName: "bob/repo", Source: "github", URL: "https://github.com/bob/repo"}})

	f.gh.Set(widgetsURL, widgets(1))
	f.gh.Set(gadgetsURL, provider.Metadata{MachineName: "acme/gadgets", Label: "gadgets", URL: gadgetsURL})
	f.yml.Set(batmanURL, provider.Metadata{MachineName: "batman-repo", Label: "The Batman repository", URL: batmanURL})

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{widgetsURL, gadgetsURL, batmanURL})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Created)
	assert.Equal(t, 1, out.Deleted)
	assert.Equal(t, []string{"acme/gadgets", "acme/widgets", "batman-repo"}, f.store.names(owner))
	assert.Equal(t, []string{"bob/repo"}, f.store.names("bob"))
}

func TestReconcile_ChangeDetection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(md *provider.Metadata)
	}{
		{"Label", func(md *provider.Metadata) { md.Label = "widgets-ng" }},
		{"Description", func(md *provider.Metadata) { md.Description = "Better widgets" }},
		{"Open issues", func(md *provider.Metadata) { md.NumOpenIssues = 4 }},
		{"URL", func(md *provider.Metadata) { md.URL = "https://github.com/acme/widgets-moved" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			engine := f.engine(false)
			f.gh.Set(widgetsURL, widgets(3))
			_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
			require.NoError(t, err)
			before := f.store.get(owner, "acme/widgets").Hash

			md := widgets(3)
			tt.mutate(&md)
			f.gh.Set(widgetsURL, md)

			out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
			require.NoError(t, err)
			assert.Equal(t, 1, out.Updated)
			assert.Equal(t, 0, out.Created+out.Deleted)
			assert.NotEqual(t, before, f.store.get(owner, "acme/widgets").Hash)
		})
	}

	t.Run("No change keeps fingerprint", func(t *testing.T) {
		f := newFixture()
		engine := f.engine(false)
		f.gh.Set(widgetsURL, widgets(3))
		_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
		require.NoError(t, err)
		before := f.store.get(owner, "acme/widgets").Hash

		out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Updated)
		assert.Equal(t, before, f.store.get(owner, "acme/widgets").Hash)
	})
}

func TestReconcile_DryRunDoesNotMutate(t *testing.T) {
	f := newFixture()
	f.store.seed(reconcile.Record{Owner: owner, Hash: "stale", Metadata: provider.Metadata{MachineName: "old/repo", Source: "github", URL: "https://github.com/old/repo"}})
	f.gh.Set(widgetsURL, widgets(3))
	engine := f.engine(true)
	assert.True(t, engine.DryRun())

	for i := 0; i < 2; i++ {
		out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
		require.NoError(t, err)

		assert.True(t, out.DryRun)
		assert.Equal(t, 1, out.Created)
		assert.Equal(t, 1, out.Deleted)
		assert.Equal(t, 0, out.Applied)
		require.Len(t, out.Actions, 2)
		assert.Equal(t, reconcile.ActionCreate, out.Actions[0].Type)
		assert.Equal(t, reconcile.ActionDelete, out.Actions[1].Type)
	}

	assert.Equal(t, 0, f.store.writeCount())
	assert.Equal(t, []string{"old/repo"}, f.store.names(owner))
	assert.Empty(t, f.events.Events())
}

func TestReconcile_PlanNeverApplies(t *testing.T) {
	f := newFixture()
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engine(false).Plan(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.True(t, out.DryRun)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 0, f.store.writeCount())
}

func TestReconcile_DuplicateOwnership(t *testing.T) {
	f := newFixture()
	f.store.seed(reconcile.Record{Owner: "bob", Hash: "h", Metadata: widgets(3)})
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Created)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureDuplicate, out.Failures[0].Kind)
	assert.Equal(t, widgetsURL, out.Failures[0].URL)
	assert.Empty(t, f.store.names(owner))
}

func TestReconcile_ConcurrentOwnersCannotShareURL(t *testing.T) {
	f := newFixture()
	f.gh.Set(widgetsURL, widgets(3))
	store := newRacingStore(f.store, 2)
	engine := reconcile.New(f.reg, store, f.events, zap.NewNop(), reconcile.Options{
		Enabled: []string{"github"},
		Workers: 1,
	})

	owners := []string{"alice", "bob"}
	outcomes := make([]*reconcile.Outcome, len(owners))
	errs := make([]error, len(owners))
	var wg sync.WaitGroup
	for i, o := range owners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], errs[i] = engine.Reconcile(context.Background(), o, []string{widgetsURL})
		}()
	}
	wg.Wait()

	created, duplicates := 0, 0
	for i := range owners {
		require.NoError(t, errs[i])
		created += outcomes[i].Created
		for _, failure := range outcomes[i].Failures {
			if failure.Kind == reconcile.FailureDuplicate {
				duplicates++
				assert.Equal(t, widgetsURL, failure.URL)
			}
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, duplicates)

	holders := len(f.store.names("alice")) + len(f.store.names("bob"))
	assert.Equal(t, 1, holders, "exactly one owner holds the url")
	assert.Len(t, f.events.Events(), 1)
}

func TestReconcile_UpdateRejectedWhenURLClaimed(t *testing.T) {
	f := newFixture()
	mirrorURL := "https://github.com/mirror/widgets"
	f.store.seed(reconcile.Record{Owner: owner, Hash: "h", Metadata: widgets(3)})
	f.store.seed(reconcile.Record{Owner: "bob", Hash: "h", Metadata: provider.Metadata{
		MachineName: "mirror/widgets", URL: mirrorURL,
	}})
	moved := widgets(4)
	moved.URL = mirrorURL
	f.gh.Set(widgetsURL, moved)

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Updated)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureDuplicate, out.Failures[0].Kind)
	rec := f.store.get(owner, "acme/widgets")
	require.NotNil(t, rec)
	assert.Equal(t, widgetsURL, rec.URL)
}

func TestReconcile_NoEnabledProviders(t *testing.T) {
	f := newFixture()
	f.store.seed(reconcile.Record{Owner: owner, Hash: "h", Metadata: widgets(3)})
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engineWith(reconcile.Options{}).Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.True(t, out.NoProviders)
	assert.Equal(t, 0, out.Gathered)
	assert.Equal(t, 0, f.gh.Fetches(widgetsURL))
	assert.Equal(t, 1, out.Deleted)
}

func TestReconcile_UnknownProviderKindIsReported(t *testing.T) {
	f := newFixture()
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engineWith(reconcile.Options{Enabled: []string{"svn", "github"}}).
		Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.False(t, out.NoProviders)
	assert.Equal(t, 1, out.Created)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureUnknownProvider, out.Failures[0].Kind)
	assert.Equal(t, "svn", out.Failures[0].Provider)
}

func TestReconcile_TransientFailureRetainsRecord(t *testing.T) {
	f := newFixture()
	engine := f.engine(false)
	f.gh.Set(widgetsURL, widgets(3))
	f.gh.Set(gadgetsURL, provider.Metadata{MachineName: "acme/gadgets", URL: gadgetsURL})
	_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL, gadgetsURL})
	require.NoError(t, err)

	f.gh.Fail(widgetsURL, provider.NewTransientError("github", widgetsURL, errors.New("502 bad gateway")))
	out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL, gadgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Deleted)
	assert.Equal(t, 1, out.Retained)
	assert.Equal(t, 1, out.Unchanged)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureTransient, out.Failures[0].Kind)
	assert.Equal(t, []string{"acme/gadgets", "acme/widgets"}, f.store.names(owner))
}

func TestReconcile_NotFoundDeletesRecord(t *testing.T) {
	f := newFixture()
	engine := f.engine(false)
	f.gh.Set(widgetsURL, widgets(3))
	_, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	f.gh.Remove(widgetsURL)
	out, err := engine.Reconcile(context.Background(), owner, []string{widgetsURL})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Deleted)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureNotFound, out.Failures[0].Kind)
	assert.Empty(t, f.store.names(owner))
}

func TestReconcile_LastWriterWinsIsDeterministic(t *testing.T) {
	mirrorURL := "https://github.com/acme/widgets-mirror"

	for i := 0; i < 20; i++ {
		f := newFixture()
		f.gh.Set(widgetsURL, widgets(1))
		mirror := widgets(9)
		mirror.URL = mirrorURL
		f.gh.Set(mirrorURL, mirror)

		out, err := f.engineWith(reconcile.Options{Enabled: []string{"github"}, Workers: 8}).
			Reconcile(context.Background(), owner, []string{widgetsURL, mirrorURL})
		require.NoError(t, err)
		require.Equal(t, 1, out.Created)

		rec := f.store.get(owner, "acme/widgets")
		require.NotNil(t, rec)
		assert.Equal(t, 9, rec.NumOpenIssues, "run %d", i)
		assert.Equal(t, mirrorURL, rec.URL, "run %d", i)
	}
}

func TestReconcile_CancelledContextDoesNotMutate(t *testing.T) {
	f := newFixture()
	f.store.seed(reconcile.Record{Owner: owner, Hash: "h", Metadata: widgets(3)})
	f.gh.Set(gadgetsURL, provider.Metadata{MachineName: "acme/gadgets", URL: gadgetsURL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.engine(false).Reconcile(ctx, owner, []string{gadgetsURL})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.store.writeCount())
	assert.Equal(t, []string{"acme/widgets"}, f.store.names(owner))
}

func TestReconcile_StoreFailureAbortsPass(t *testing.T) {
	f := newFixture()
	f.store.failList = errors.New("connection refused")
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{widgetsURL})
	assert.Nil(t, out)
	assert.EqualError(t, err, "failed to list repositories of alice: connection refused")
	assert.Equal(t, 0, f.store.writeCount())
}

func TestReconcile_BlankAndDuplicateURLs(t *testing.T) {
	f := newFixture()
	f.gh.Set(widgetsURL, widgets(3))

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{"", "  ", widgetsURL, " " + widgetsURL + " "})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 1, f.gh.Fetches(widgetsURL))
	assert.Empty(t, out.Failures)
}

func TestReconcile_InvalidURLIsReported(t *testing.T) {
	f := newFixture()

	out, err := f.engine(false).Reconcile(context.Background(), owner, []string{"ftp://example.com/repo"})
	require.NoError(t, err)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, reconcile.FailureInvalidURL, out.Failures[0].Kind)
	assert.Equal(t, 0, out.Changes())
}

func TestReconcile_ManyRepositories(t *testing.T) {
	f := newFixture()
	var urls []string
	for i := 0; i < 50; i++ {
		u := fmt.Sprintf("https://github.com/acme/repo-%02d", i)
		f.gh.Set(u, provider.Metadata{MachineName: fmt.Sprintf("acme/repo-%02d", i), URL: u, NumOpenIssues: i})
		urls = append(urls, u)
	}

	out, err := f.engine(false).Reconcile(context.Background(), owner, urls)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Created)
	assert.Len(t, f.store.names(owner), 50)

	// Creates follow declaration order.
	assert.Equal(t, "acme/repo-00", out.Actions[0].MachineName)
	assert.Equal(t, "acme/repo-49", out.Actions[49].MachineName)
}
