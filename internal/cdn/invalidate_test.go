package cdn_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/cdn"
	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/testutil"
)

func newInvalidator(cf *testutil.CloudFront, id string, clock clockwork.Clock) *cdn.Invalidator {
	return &cdn.Invalidator{
		Client:         cf,
		DistributionID: id,
		BatchSize:      3000,
		RetryInterval:  time.Minute,
		Clock:          clock,
		Observer:       observer.Nop{},
	}
}

func TestInvalidateBatches(t *testing.T) {
	cf := testutil.NewCloudFront()
	id := cf.AddDistribution(nil, endpoint)

	keys := make([]string, 7000)
	for i := range keys {
		keys[i] = fmt.Sprintf("page-%04d.html", i)
	}

	iv := newInvalidator(cf, id, clockwork.NewRealClock())
	batches, err := iv.Invalidate(context.Background(), keys, "index.html")
	require.NoError(t, err)
	require.Equal(t, 3, batches)

	require.Len(t, cf.Invalidations, 3)
	require.Len(t, cf.Invalidations[0], 3000)
	require.Len(t, cf.Invalidations[1], 3000)
	require.Len(t, cf.Invalidations[2], 1000)
	require.Equal(t, "/page-0000.html", cf.Invalidations[0][0])
	require.Equal(t, "/page-6999.html", cf.Invalidations[2][999])

	// every batch gets its own token
	require.Len(t, cf.CallerReferences, 3)
	require.NotEqual(t, cf.CallerReferences[0], cf.CallerReferences[1])
	require.NotEqual(t, cf.CallerReferences[1], cf.CallerReferences[2])
}

func TestInvalidateRootIndex(t *testing.T) {
	cf := testutil.NewCloudFront()
	id := cf.AddDistribution(nil, endpoint)

	iv := newInvalidator(cf, id, clockwork.NewRealClock())
	batches, err := iv.Invalidate(context.Background(), []string{"index.html", "", "blog/index.html", "blog/"}, "index.html")
	require.NoError(t, err)
	require.Equal(t, 1, batches)
	require.Equal(t, [][]string{{"/index.html", "/", "/blog/index.html", "/blog/"}}, cf.Invalidations)
}

func TestInvalidateNothing(t *testing.T) {
	cf := testutil.NewCloudFront()
	id := cf.AddDistribution(nil, endpoint)

	iv := newInvalidator(cf, id, clockwork.NewRealClock())
	batches, err := iv.Invalidate(context.Background(), nil, "index.html")
	require.NoError(t, err)
	require.Equal(t, 0, batches)
	require.Equal(t, 0, cf.InvalidationCalls)
}

func TestInvalidateRetriesWhenBusy(t *testing.T) {
	cf := testutil.NewCloudFront()
	id := cf.AddDistribution(nil, endpoint)
	cf.BusyInvalidations = 2

	clock := clockwork.NewFakeClock()
	iv := newInvalidator(cf, id, clock)

	done := make(chan error, 1)
	go func() {
		_, err := iv.Invalidate(context.Background(), []string{"a.html", "b.html"}, "index.html")
		done <- err
	}()

	for range 2 {
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
	}

	require.NoError(t, <-done)
	require.Equal(t, 3, cf.InvalidationCalls)
	require.Equal(t, [][]string{{"/a.html", "/b.html"}}, cf.Invalidations)

	// the retried batch is resubmitted verbatim
	require.Len(t, cf.CallerReferences, 3)
	require.Equal(t, cf.CallerReferences[0], cf.CallerReferences[1])
	require.Equal(t, cf.CallerReferences[1], cf.CallerReferences[2])
}

func TestInvalidateCancelledWhileBusy(t *testing.T) {
	cf := testutil.NewCloudFront()
	id := cf.AddDistribution(nil, endpoint)
	cf.BusyInvalidations = 100

	clock := clockwork.NewFakeClock()
	iv := newInvalidator(cf, id, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := iv.Invalidate(ctx, []string{"a.html"}, "index.html")
		done <- err
	}()

	clock.BlockUntil(1)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Empty(t, cf.Invalidations)
}

func TestInvalidateUnknownDistribution(t *testing.T) {
	cf := testutil.NewCloudFront()

	iv := newInvalidator(cf, "ENOPE", clockwork.NewRealClock())
	_, err := iv.Invalidate(context.Background(), []string{"a.html"}, "index.html")
	require.Error(t, err)
	require.Equal(t, 1, cf.InvalidationCalls)
}
