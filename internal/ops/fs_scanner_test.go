package ops_test

import (
	"context"
	"path"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/ops"
)

func newSite(t *testing.T, files map[string]string) afero.Fs {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/site", 0755))
	for name, content := range files {
		fpath := path.Join("/site", name)
		require.NoError(t, fsys.MkdirAll(path.Dir(fpath), 0755))
		require.NoError(t, afero.WriteFile(fsys, fpath, []byte(content), 0644))
	}
	return fsys
}

func scan(t *testing.T, fsys afero.Fs, allowHidden bool) []string {
	var paths []string
	for entry := range ops.NewFsScanner(context.Background(), fsys, "/site", allowHidden, observer.Nop{}) {
		require.NoError(t, entry.Err)
		paths = append(paths, entry.RelPath)
	}
	sort.Strings(paths)
	return paths
}

var siteFiles = map[string]string{
	"index.html":       "<html>home</html>",
	"blog/index.html":  "<html>blog</html>",
	"blog/post.html":   "<html>post</html>",
	".git/config":      "[core]",
	"blog/.draft.html": "<html>draft</html>",
	".well-known/x":    "x",
}

func TestFsScannerSkipsHidden(t *testing.T) {
	fsys := newSite(t, siteFiles)

	require.Equal(t, []string{
		"blog/index.html",
		"blog/post.html",
		"index.html",
	}, scan(t, fsys, false))
}

func TestFsScannerAllowHidden(t *testing.T) {
	fsys := newSite(t, siteFiles)

	require.Equal(t, []string{
		".git/config",
		".well-known/x",
		"blog/.draft.html",
		"blog/index.html",
		"blog/post.html",
		"index.html",
	}, scan(t, fsys, true))
}

func TestFsScannerEntries(t *testing.T) {
	fsys := newSite(t, map[string]string{"a/b/c.txt": "hello"})

	var entries []*ops.Entry
	for entry := range ops.NewFsScanner(context.Background(), fsys, "/site", false, observer.Nop{}) {
		entries = append(entries, entry)
	}
	require.Len(t, entries, 1)
	require.Equal(t, "a/b/c.txt", entries[0].RelPath)
	require.Equal(t, "/site/a/b/c.txt", entries[0].AbsPath)
	require.Equal(t, int64(5), entries[0].Size)
}

func TestFsScannerCancelled(t *testing.T) {
	fsys := newSite(t, siteFiles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the channel closes without the walk blocking on a full buffer
	for range ops.NewFsScanner(ctx, fsys, "/site", true, observer.Nop{}) {
	}
}

func TestCheckRoot(t *testing.T) {
	fsys := newSite(t, map[string]string{"index.html": "x"})

	require.NoError(t, ops.CheckRoot(fsys, "/site"))

	var precondition *fault.ErrPrecondition
	require.ErrorAs(t, ops.CheckRoot(fsys, "/nope"), &precondition)
	require.ErrorAs(t, ops.CheckRoot(fsys, "/site/index.html"), &precondition)
}

func TestIsHidden(t *testing.T) {
	require.True(t, ops.IsHidden(".git/config"))
	require.True(t, ops.IsHidden("blog/.draft.html"))
	require.True(t, ops.IsHidden(".s3site"))
	require.False(t, ops.IsHidden("blog/index.html"))
	require.False(t, ops.IsHidden("blog/"))
	require.False(t, ops.IsHidden("a.b/c.d"))
}
