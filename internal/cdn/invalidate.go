package cdn

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/studio1767/s3site/internal/observer"
)

// DefaultBatchSize is the most paths CloudFront accepts in flight for one
// distribution.
const DefaultBatchSize = 3000

// Invalidator purges changed keys from the distribution's caches.
type Invalidator struct {
	Client         CFClient
	DistributionID string
	BatchSize      int
	RetryInterval  time.Duration
	Clock          clockwork.Clock
	Observer       observer.Observer
}

// Invalidate submits "/<key>" for every key, plus "/" for the root index
// document, in batches of at most BatchSize paths. A batch rejected with
// TooManyInvalidationsInProgress is resubmitted unchanged after
// RetryInterval until it is accepted. It returns the number of batches
// submitted.
func (iv *Invalidator) Invalidate(ctx context.Context, keys []string, index string) (int, error) {

	size := iv.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := 0
	seen := make(map[string]bool)
	pending := make([]string, 0, size)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := iv.submit(ctx, pending); err != nil {
			return err
		}
		batches++
		pending = make([]string, 0, size)
		return nil
	}

	add := func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true
		pending = append(pending, path)
		if len(pending) >= size {
			return flush()
		}
		return nil
	}

	for _, key := range keys {
		if err := add("/" + key); err != nil {
			return batches, err
		}
		if key == index {
			if err := add("/"); err != nil {
				return batches, err
			}
		}
	}
	if err := flush(); err != nil {
		return batches, err
	}

	return batches, nil
}

func (iv *Invalidator) submit(ctx context.Context, paths []string) error {

	input := cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(iv.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(uuid.NewString()),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	}

	observer.Noticef(iv.Observer, observer.Info, "invalidating %d paths", len(paths))

	for {
		_, err := iv.Client.CreateInvalidation(ctx, &input)
		if err == nil {
			return nil
		}

		var busy *types.TooManyInvalidationsInProgress
		if !errors.As(err, &busy) {
			return translate(err)
		}

		observer.Noticef(iv.Observer, observer.Info, "too many invalidations in progress, retrying in %s", iv.RetryInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-iv.Clock.After(iv.RetryInterval):
		}
	}
}
