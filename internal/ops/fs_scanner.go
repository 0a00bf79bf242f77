package ops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/observer"
)

// CheckRoot fails with a precondition error unless root is an existing
// directory.
func CheckRoot(fsys afero.Fs, root string) error {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fault.Precondition("folder %s does not exist", root)
		}
		return err
	}
	if !info.IsDir() {
		return fault.Precondition("%s is a file not a folder", root)
	}
	return nil
}

// IsHidden reports whether any segment of the slash separated path starts
// with a '.'.
func IsHidden(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// NewFsScanner streams every regular file under root. Hidden files and
// folders are skipped, whole subtrees at a time, unless allowHidden is set.
// Each call starts a fresh walk; the channel closes when the walk is done or
// ctx is cancelled.
func NewFsScanner(ctx context.Context, fsys afero.Fs, root string, allowHidden bool, obs observer.Observer) <-chan *Entry {

	out := make(chan *Entry, 10)
	fs := fsScanner{
		ctx:         ctx,
		out:         out,
		fsys:        fsys,
		root:        root,
		allowHidden: allowHidden,
		obs:         obs,
	}
	go func() {
		defer close(fs.out)
		fs.run(fs.root)
	}()

	return out
}

type fsScanner struct {
	ctx         context.Context
	out         chan<- *Entry
	fsys        afero.Fs
	root        string
	allowHidden bool
	obs         observer.Observer
}

func (fs *fsScanner) send(entry *Entry) bool {
	select {
	case <-fs.ctx.Done():
		return false
	case fs.out <- entry:
		return true
	}
}

func (fs *fsScanner) relPath(fpath string) string {
	rpath, err := filepath.Rel(fs.root, fpath)
	if err != nil {
		rpath = fpath
	}
	return filepath.ToSlash(rpath)
}

// run walks dir and returns false once the scan should stop.
func (fs *fsScanner) run(dir string) bool {
	// read the directory contents
	entries, err := afero.ReadDir(fs.fsys, dir)
	if err != nil {
		return fs.send(&Entry{
			RelPath: fs.relPath(dir),
			AbsPath: dir,
			Err:     err,
		})
	}

	// loop over the directory entries
	for _, info := range entries {
		// check for context done
		select {
		case <-fs.ctx.Done():
			return false
		default:
		}

		fpath := filepath.Join(dir, info.Name())
		rpath := fs.relPath(fpath)

		if !fs.allowHidden && strings.HasPrefix(info.Name(), ".") {
			observer.Noticef(fs.obs, observer.Debug, "skipping hidden %s", rpath)
			continue
		}

		// symlinked files are followed, symlinked folders are not
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := fs.fsys.Stat(fpath)
			if err != nil || resolved.IsDir() {
				continue
			}
			info = resolved
		}

		if info.Mode().IsRegular() {
			if !fs.send(&Entry{RelPath: rpath, AbsPath: fpath, Size: info.Size()}) {
				return false
			}
		} else if info.IsDir() {
			if !fs.run(fpath) {
				return false
			}
		}
	}

	return true
}
