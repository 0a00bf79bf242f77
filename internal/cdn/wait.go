package cdn

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/jonboulle/clockwork"

	"github.com/studio1767/s3site/internal/observer"
)

// PropagationBound is how long changes may take to reach every edge
// location when nobody waits for them.
const PropagationBound = 15 * time.Minute

const statusInProgress = "InProgress"

// WaitForPropagation polls the distribution every interval until it is
// deployed and has no invalidations in progress.
func WaitForPropagation(ctx context.Context, client CFClient, id string, interval time.Duration, clock clockwork.Clock, obs observer.Observer) error {

	for {
		resp, err := client.GetDistribution(ctx, &cloudfront.GetDistributionInput{
			Id: aws.String(id),
		})
		if err != nil {
			return translate(err)
		}

		if resp.Distribution == nil {
			return fmt.Errorf("distribution %s returned no status", id)
		}

		status := aws.ToString(resp.Distribution.Status)
		pending := aws.ToInt32(resp.Distribution.InProgressInvalidationBatches)
		if status != statusInProgress && pending == 0 {
			return nil
		}

		observer.Noticef(obs, observer.Info, "waiting for distribution %s: status %s, %d invalidations in progress", id, status, pending)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(interval):
		}
	}
}
