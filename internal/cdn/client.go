package cdn

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/smithy-go"

	"github.com/studio1767/s3site/internal/fault"
)

// CFClient is the part of the CloudFront API the reconciler drives.
type CFClient interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	GetDistribution(ctx context.Context, params *cloudfront.GetDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error)
	GetDistributionConfig(ctx context.Context, params *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	CreateDistribution(ctx context.Context, params *cloudfront.CreateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error)
	UpdateDistribution(ctx context.Context, params *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// ControlRegion is where the CloudFront control plane lives.
const ControlRegion = "us-east-1"

func NewClient(cfg aws.Config) CFClient {
	return cloudfront.NewFromConfig(cfg, func(o *cloudfront.Options) {
		o.Region = ControlRegion
	})
}

// translate turns the responses a user can act on into user errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var apiError smithy.APIError
	if !errors.As(err, &apiError) {
		return err
	}

	switch apiError.ErrorCode() {
	case "OptInRequired":
		return fault.BadUser("CloudFront is not enabled for this account: %s", apiError.ErrorMessage())
	case "AccessDenied":
		return fault.BadUser("Access denied: %s", apiError.ErrorMessage())
	case "CNAMEAlreadyExists":
		return fault.BadUser("A CloudFront distribution already uses this host name: %s", apiError.ErrorMessage())
	}

	return err
}
