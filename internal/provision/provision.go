package provision

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/s3io"
)

// MarkerKey names the private, empty object that marks a bucket as managed
// by s3site. Buckets without it are never written to unless taken over.
const MarkerKey = ".s3site"

type Options struct {
	HostName  string
	Region    string
	Index     string
	ErrorPage string
	UseCDN    bool
	TakeOver  bool
}

// Bucket is the resolved website bucket. Client is bound to the bucket's
// region.
type Bucket struct {
	Name    string
	Region  string
	Created bool
	Client  s3io.Client
}

func (b *Bucket) WebsiteEndpoint() string {
	return WebsiteEndpoint(b.Name, b.Region)
}

func WebsiteEndpoint(bucket, region string) string {
	return fmt.Sprintf("%s.s3-website-%s.amazonaws.com", bucket, region)
}

// Resolve finds or creates the bucket for the host and leaves it private,
// marked, and configured as a website with the given documents.
//
// A bucket matches when it is named after the host, or after the host plus a
// "-suffix". The suffixed form exists because the plain name may be taken
// by another account, which only works when a CDN hides the bucket name.
func Resolve(ctx context.Context, client s3io.Client, opts Options, obs observer.Observer) (*Bucket, error) {

	names, err := client.ListBuckets(ctx)
	if err != nil {
		return nil, s3io.UserError(err)
	}

	var bucket *Bucket
	if name := match(names, opts.HostName); name != "" {
		bucket, err = adopt(ctx, client, name, opts, obs)
	} else {
		bucket, err = create(ctx, client, opts, obs)
	}
	if err != nil {
		return nil, err
	}

	if err := bucket.Client.SetBucketPrivate(ctx, bucket.Name); err != nil {
		return nil, s3io.UserError(err)
	}

	updated, err := bucket.Client.ConfigureWebsite(ctx, bucket.Name, opts.Index, opts.ErrorPage)
	if err != nil {
		return nil, s3io.UserError(err)
	}
	if updated {
		observer.Noticef(obs, observer.Info, "configured website hosting on %s", bucket.Name)
	}

	return bucket, nil
}

func match(names []string, host string) string {
	candidate := ""
	for _, name := range names {
		if name == host {
			return name
		}
		if candidate == "" && strings.HasPrefix(name, host+"-") {
			candidate = name
		}
	}
	return candidate
}

func adopt(ctx context.Context, client s3io.Client, name string, opts Options, obs observer.Observer) (*Bucket, error) {

	region, err := client.BucketRegion(ctx, name)
	if err != nil {
		return nil, s3io.UserError(err)
	}
	regional := client.ForRegion(region)

	marker, err := regional.Head(ctx, name, MarkerKey)
	if err != nil {
		return nil, s3io.UserError(err)
	}
	if marker == nil {
		if !opts.TakeOver {
			return nil, fault.BadUser("bucket %s was not created by s3site; use --take-over-bucket to manage it anyway", name)
		}
		observer.Noticef(obs, observer.Warn, "taking over bucket %s", name)
		if err := initialize(ctx, regional, name); err != nil {
			return nil, err
		}
	}

	observer.Noticef(obs, observer.Debug, "using bucket %s in %s", name, region)

	return &Bucket{
		Name:   name,
		Region: region,
		Client: regional,
	}, nil
}

func create(ctx context.Context, client s3io.Client, opts Options, obs observer.Observer) (*Bucket, error) {

	region := s3io.NormalizeRegion(opts.Region)
	name := opts.HostName

	for {
		err := client.CreateBucket(ctx, name, region)
		if err == nil {
			break
		}

		var taken *s3io.ErrBucketTaken
		if !errors.As(err, &taken) {
			return nil, s3io.UserError(err)
		}
		if !opts.UseCDN {
			return nil, fault.BadUser("bucket name %s is taken by another account; a CDN is needed to serve %s from another bucket", name, opts.HostName)
		}

		suffix, err := randomSuffix()
		if err != nil {
			return nil, err
		}
		name = opts.HostName + "-" + suffix
		observer.Noticef(obs, observer.Info, "bucket name taken, trying %s", name)
	}

	observer.Noticef(obs, observer.Info, "created bucket %s in %s", name, region)

	regional := client.ForRegion(region)
	if err := initialize(ctx, regional, name); err != nil {
		return nil, err
	}

	return &Bucket{
		Name:    name,
		Region:  region,
		Created: true,
		Client:  regional,
	}, nil
}

// initialize marks the bucket as ours and lets it hold public objects.
func initialize(ctx context.Context, client s3io.Client, name string) error {
	_, err := client.Upload(ctx, name, MarkerKey, bytes.NewReader(nil), s3io.UploadOptions{})
	if err != nil {
		return s3io.UserError(err)
	}
	return s3io.UserError(client.AllowPublicObjects(ctx, name))
}

func randomSuffix() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

