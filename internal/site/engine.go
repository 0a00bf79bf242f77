// Package site runs one complete publish of a local folder: bucket, CDN,
// uploads, deletes, invalidations and the wait for propagation.
package site

import (
	"context"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/studio1767/s3site/internal/cdn"
	"github.com/studio1767/s3site/internal/job"
	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/ops"
	"github.com/studio1767/s3site/internal/provision"
	"github.com/studio1767/s3site/internal/s3io"
)

// Engine holds the collaborators of a run. CDN may be nil for jobs that do
// not use a distribution.
type Engine struct {
	Store        s3io.Client
	CDN          cdn.CFClient
	Fs           afero.Fs
	Clock        clockwork.Clock
	Observer     observer.Observer
	ReportWriter io.Writer
}

type Result struct {
	Bucket       string
	Region       string
	Endpoint     string
	Distribution *cdn.Distribution
	Report       *ops.Report
	Changes      []string
	Deleted      int
	Batches      int
}

// Run converges the remote site on the local folder. Every stage finishes
// before the next starts; only the per-file uploads run in parallel.
func (e *Engine) Run(ctx context.Context, j *job.Job) (*Result, error) {

	if err := ops.CheckRoot(e.Fs, j.Folder); err != nil {
		return nil, err
	}

	bucket, err := provision.Resolve(ctx, e.Store, provision.Options{
		HostName:  j.HostName,
		Region:    j.BucketRegion,
		Index:     j.Index,
		ErrorPage: j.ErrorPage,
		UseCDN:    !j.NoCDN,
		TakeOver:  j.TakeOverBucket,
	}, e.Observer)
	if err != nil {
		return nil, err
	}

	result := Result{
		Bucket:   bucket.Name,
		Region:   bucket.Region,
		Endpoint: bucket.WebsiteEndpoint(),
		Report:   ops.NewReport(e.ReportWriter),
	}

	if !j.NoCDN {
		result.Distribution, err = cdn.Reconcile(ctx, e.CDN, j.HostName, result.Endpoint, e.Observer)
		if err != nil {
			return nil, err
		}
	}

	changes := ops.NewChangeSet()

	if err := e.upload(ctx, j, bucket, changes, result.Report); err != nil {
		return nil, s3io.UserError(err)
	}

	reaper := ops.Reaper{
		Client:      bucket.Client,
		Fs:          e.Fs,
		Bucket:      bucket.Name,
		Root:        j.Folder,
		Index:       j.Index,
		MarkerKey:   provision.MarkerKey,
		AllowHidden: j.AllowHidden,
		Changes:     changes,
		Report:      result.Report,
		Observer:    e.Observer,
	}
	result.Deleted, err = reaper.Reap(ctx)
	if err != nil {
		return nil, s3io.UserError(err)
	}

	result.Changes = changes.Keys()

	if j.NoCDN {
		observer.Noticef(e.Observer, observer.Info, "sync complete; set a DNS CNAME entry for %s pointing to %s", j.HostName, result.Endpoint)
		return &result, nil
	}

	invalidator := cdn.Invalidator{
		Client:         e.CDN,
		DistributionID: result.Distribution.ID,
		BatchSize:      j.InvalidationBatchSize,
		RetryInterval:  j.InvalidationRetry.Duration,
		Clock:          e.Clock,
		Observer:       e.Observer,
	}
	result.Batches, err = invalidator.Invalidate(ctx, result.Changes, j.Index)
	if err != nil {
		return nil, err
	}

	observer.Noticef(e.Observer, observer.Info, "sync complete; set a DNS CNAME entry for %s pointing to %s", j.HostName, result.Distribution.DomainName)

	if j.SkipWait {
		observer.Noticef(e.Observer, observer.Info, "CloudFront may take up to %s to reflect any changes", cdn.PropagationBound)
		return &result, nil
	}

	err = cdn.WaitForPropagation(ctx, e.CDN, result.Distribution.ID, j.PollInterval.Duration, e.Clock, e.Observer)
	if err != nil {
		return nil, err
	}
	observer.Noticef(e.Observer, observer.Info, "CloudFront propagation is complete")

	return &result, nil
}

// upload feeds the scanned files to a bounded pool of syncers and returns
// once every upload has been acknowledged.
func (e *Engine) upload(ctx context.Context, j *job.Job, bucket *provision.Bucket, changes *ops.ChangeSet, report *ops.Report) error {

	syncer := ops.Syncer{
		Client:   bucket.Client,
		Fs:       e.Fs,
		Bucket:   bucket.Name,
		Index:    j.Index,
		Repair:   j.Repair,
		Changes:  changes,
		Report:   report,
		Observer: e.Observer,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.Workers)

	for entry := range ops.NewFsScanner(gctx, e.Fs, j.Folder, j.AllowHidden, e.Observer) {
		g.Go(func() error {
			_, err := syncer.Sync(gctx, entry)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// a cancelled scan ends early without an error of its own
	return ctx.Err()
}
