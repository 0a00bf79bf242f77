package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/s3io"
)

// ObjectKey maps a slash separated relative path to its remote key. An empty
// key names the index document.
func ObjectKey(relPath, index string) string {
	key := strings.TrimPrefix(relPath, "/")
	if key == "" {
		key = index
	}
	return key
}

// IndexDirKey returns the folder key an index document is also served under
// and true, or false when key is not an index document. The root index maps
// to the empty folder key.
func IndexDirKey(key, index string) (string, bool) {
	if key == index {
		return "", true
	}
	if strings.HasSuffix(key, "/"+index) {
		return strings.TrimSuffix(key, index), true
	}
	return "", false
}

// Syncer makes one remote object match one local file. It is shared by all
// workers; everything specific to a file travels in the Entry.
type Syncer struct {
	Client   s3io.Client
	Fs       afero.Fs
	Bucket   string
	Index    string
	Repair   bool
	Changes  *ChangeSet
	Report   *Report
	Observer observer.Observer
}

// Sync uploads entry when the remote copy is missing or differs, or when
// repair is enabled and the remote copy is not publicly readable. Replacing
// an existing object adds its key, and its folder key for index documents,
// to the change set. New keys are never added since nothing can have cached
// them.
func (s *Syncer) Sync(ctx context.Context, entry *Entry) (Outcome, error) {
	if entry.Err != nil {
		return Unchanged, fmt.Errorf("scanning %s: %w", entry.RelPath, entry.Err)
	}

	key := ObjectKey(entry.RelPath, s.Index)

	if entry.Fingerprint == "" {
		fp, err := Fingerprint(s.Fs, entry.AbsPath)
		if err != nil {
			return Unchanged, err
		}
		entry.Fingerprint = fp
	}
	ctype, encoding := ContentTypeFor(entry.RelPath)

	remote, err := s.Client.Head(ctx, s.Bucket, key)
	if err != nil {
		return Unchanged, err
	}

	outcome := Unchanged
	if !Matches(entry, ctype, encoding, remote) {
		outcome = Uploaded
	} else if s.Repair {
		policy, err := s.Client.Grants(ctx, s.Bucket, key)
		if err != nil {
			return Unchanged, err
		}
		if !IsPublicRead(policy) {
			observer.Noticef(s.Observer, observer.Info, "repairing access to %s", key)
			outcome = AccessRepaired
		}
	}

	if outcome == Unchanged {
		observer.Noticef(s.Observer, observer.Debug, "unchanged %s", key)
		return outcome, s.Report.Record(key, outcome, entry.Size, entry.Fingerprint)
	}

	if err := s.upload(ctx, key, ctype, encoding, entry); err != nil {
		return Unchanged, err
	}

	if remote != nil && outcome == Uploaded {
		s.Changes.Add(key)
		if dirKey, ok := IndexDirKey(key, s.Index); ok {
			s.Changes.Add(dirKey)
		}
	}

	return outcome, s.Report.Record(key, outcome, entry.Size, entry.Fingerprint)
}

func (s *Syncer) upload(ctx context.Context, key, ctype, encoding string, entry *Entry) error {
	// open the file for reading
	file, err := s.Fs.Open(entry.AbsPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entry.AbsPath, err)
	}
	defer file.Close()

	observer.Noticef(s.Observer, observer.Info, "uploading %s", key)

	_, err = s.Client.Upload(ctx, s.Bucket, key, file, s3io.UploadOptions{
		ContentType:     ctype,
		ContentEncoding: encoding,
		Fingerprint:     entry.Fingerprint,
		Size:            entry.Size,
		Public:          true,
		Progress: func(done, total int64) {
			s.Observer.Progress(key, done, total)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return nil
}
