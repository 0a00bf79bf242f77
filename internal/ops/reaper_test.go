package ops_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/ops"
	"github.com/studio1767/s3site/internal/testutil"
)

func newReaper(fsys afero.Fs, store *testutil.Store) *ops.Reaper {
	return &ops.Reaper{
		Client:    store,
		Fs:        fsys,
		Bucket:    bucket,
		Root:      "/site",
		Index:     "index.html",
		MarkerKey: ".s3site",
		Changes:   ops.NewChangeSet(),
		Report:    ops.NewReport(nil),
		Observer:  observer.Nop{},
	}
}

func remoteSite(t *testing.T) *testutil.Store {
	store := testutil.NewStore()
	store.AddBucket(bucket, "us-east-1")
	for _, key := range []string{
		".s3site",
		"index.html",
		"gone.html",
		"blog/",
		"old/",
		".git/config",
		"blog/index.html",
	} {
		store.PutObject(bucket, key, []byte(key), "", true)
	}
	return store
}

func TestReapDeletesOrphans(t *testing.T) {
	fsys := newSite(t, map[string]string{
		"index.html":      "home",
		"blog/index.html": "blog",
	})
	store := remoteSite(t)

	reaper := newReaper(fsys, store)
	deleted, err := reaper.Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	require.Equal(t, []string{".git/config", ".s3site", "blog/", "blog/index.html", "index.html"}, store.Keys(bucket))
	require.Equal(t, []string{"gone.html", "old/"}, reaper.Changes.Keys())
	require.Equal(t, 2, reaper.Report.Count(ops.Deleted))
}

func TestReapAllowHidden(t *testing.T) {
	files := map[string]string{
		"index.html":      "home",
		"blog/index.html": "blog",
	}

	// no local file, so it goes
	store := remoteSite(t)
	reaper := newReaper(newSite(t, files), store)
	reaper.AllowHidden = true
	_, err := reaper.Reap(context.Background())
	require.NoError(t, err)
	require.NotContains(t, store.Keys(bucket), ".git/config")
	require.Contains(t, store.Keys(bucket), ".s3site")

	// synced, so it stays
	files[".git/config"] = "[core]"
	store = remoteSite(t)
	reaper = newReaper(newSite(t, files), store)
	reaper.AllowHidden = true
	_, err = reaper.Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{".git/config", ".s3site", "blog/", "blog/index.html", "index.html"}, store.Keys(bucket))
}

func TestReapFolderKeyWithoutIndex(t *testing.T) {
	// a folder exists locally but has no index document
	fsys := newSite(t, map[string]string{
		"index.html":     "home",
		"blog/post.html": "post",
	})
	store := testutil.NewStore()
	store.AddBucket(bucket, "us-east-1")
	store.PutObject(bucket, "blog/", []byte("x"), "", true)

	reaper := newReaper(fsys, store)
	deleted, err := reaper.Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.Empty(t, store.Keys(bucket))
}

func TestReapEmptyBucket(t *testing.T) {
	fsys := newSite(t, map[string]string{"index.html": "home"})
	store := testutil.NewStore()
	store.AddBucket(bucket, "us-east-1")

	deleted, err := newReaper(fsys, store).Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, deleted)
	require.Equal(t, 0, store.Deletes)
}
