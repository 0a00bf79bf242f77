package ops

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/s3io"
)

// Reaper deletes remote objects that no longer have a local file.
type Reaper struct {
	Client      s3io.Client
	Fs          afero.Fs
	Bucket      string
	Root        string
	Index       string
	MarkerKey   string
	AllowHidden bool
	Changes     *ChangeSet
	Report      *Report
	Observer    observer.Observer
}

// Reap runs after every upload has finished. Folder keys ("blog/") stand for
// the folder's index document. Unless hidden files are synced, hidden keys are
// left alone, as they are by the scanner. It returns the number of objects
// deleted.
func (r *Reaper) Reap(ctx context.Context) (int, error) {

	objects, err := r.Client.List(ctx, r.Bucket)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, object := range objects {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if object.Key == r.MarkerKey {
			continue
		}

		logical := object.Key
		if logical == "" || strings.HasSuffix(logical, "/") {
			logical = path.Join(logical, r.Index)
		}

		if !r.AllowHidden && IsHidden(logical) {
			continue
		}

		exists, err := r.localExists(logical)
		if err != nil {
			return deleted, err
		}
		if exists {
			continue
		}

		observer.Noticef(r.Observer, observer.Info, "deleting %s", object.Key)
		if err := r.Client.Delete(ctx, r.Bucket, object.Key); err != nil {
			return deleted, err
		}
		deleted++

		r.Changes.Add(object.Key)
		if err := r.Report.Record(object.Key, Deleted, object.Size, object.Fingerprint); err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}

func (r *Reaper) localExists(logical string) (bool, error) {
	info, err := r.Fs.Stat(filepath.Join(r.Root, filepath.FromSlash(logical)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
