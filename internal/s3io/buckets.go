package s3io

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const DefaultRegion = "us-east-1"

func (cl *client) ListBuckets(ctx context.Context) ([]string, error) {

	var names []string
	lbi := s3.ListBucketsInput{}

	for {
		resp, err := cl.client.ListBuckets(ctx, &lbi)
		if err != nil {
			return nil, translate("list buckets", err)
		}
		for _, bucket := range resp.Buckets {
			names = append(names, aws.ToString(bucket.Name))
		}
		if aws.ToString(resp.ContinuationToken) == "" {
			break
		}
		lbi.ContinuationToken = resp.ContinuationToken
	}

	return names, nil
}

// CreateBucket creates a bucket that lets object writers own their objects,
// which is what allows per-object ACLs to take effect.
func (cl *client) CreateBucket(ctx context.Context, bucket, region string) error {

	cbi := s3.CreateBucketInput{
		Bucket:          aws.String(bucket),
		ObjectOwnership: types.ObjectOwnershipObjectWriter,
	}
	if region != DefaultRegion {
		cbi.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	_, err := cl.regional(region).CreateBucket(ctx, &cbi)
	if err != nil {
		var taken *types.BucketAlreadyExists
		if errors.As(err, &taken) {
			return &ErrBucketTaken{
				Bucket: bucket,
			}
		}
		return translate("create bucket", err)
	}

	return nil
}

func (cl *client) BucketRegion(ctx context.Context, bucket string) (string, error) {

	resp, err := cl.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", translate("get bucket location", err)
	}

	return NormalizeRegion(string(resp.LocationConstraint)), nil
}

// NormalizeRegion maps the legacy location constraints onto region names.
func NormalizeRegion(location string) string {
	switch location {
	case "", "US":
		return DefaultRegion
	case "EU":
		return "eu-west-1"
	}
	return location
}

func (cl *client) SetBucketPrivate(ctx context.Context, bucket string) error {

	_, err := cl.client.PutBucketAcl(ctx, &s3.PutBucketAclInput{
		Bucket: aws.String(bucket),
		ACL:    types.BucketCannedACLPrivate,
	})

	return translate("put bucket acl", err)
}

// AllowPublicObjects removes the public access block new buckets get by
// default; without this public-read object ACLs are rejected.
func (cl *client) AllowPublicObjects(ctx context.Context, bucket string) error {

	_, err := cl.client.DeletePublicAccessBlock(ctx, &s3.DeletePublicAccessBlockInput{
		Bucket: aws.String(bucket),
	})

	return translate("delete public access block", err)
}

// ConfigureWebsite makes sure the bucket serves as a website with the given
// index and error documents. It only writes when the live configuration
// differs and reports whether it did.
func (cl *client) ConfigureWebsite(ctx context.Context, bucket, index, errorPage string) (bool, error) {

	resp, err := cl.client.GetBucketWebsite(ctx, &s3.GetBucketWebsiteInput{
		Bucket: aws.String(bucket),
	})
	if err != nil && errorCode(err) != "NoSuchWebsiteConfiguration" {
		return false, translate("get bucket website", err)
	}
	if err == nil && websiteMatches(resp, index, errorPage) {
		return false, nil
	}

	wc := types.WebsiteConfiguration{
		IndexDocument: &types.IndexDocument{
			Suffix: aws.String(index),
		},
	}
	if errorPage != "" {
		wc.ErrorDocument = &types.ErrorDocument{
			Key: aws.String(errorPage),
		}
	}

	_, err = cl.client.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket:               aws.String(bucket),
		WebsiteConfiguration: &wc,
	})
	if err != nil {
		return false, translate("put bucket website", err)
	}

	return true, nil
}

func websiteMatches(resp *s3.GetBucketWebsiteOutput, index, errorPage string) bool {
	if resp.RedirectAllRequestsTo != nil || len(resp.RoutingRules) > 0 {
		return false
	}
	if resp.IndexDocument == nil || aws.ToString(resp.IndexDocument.Suffix) != index {
		return false
	}

	current := ""
	if resp.ErrorDocument != nil {
		current = aws.ToString(resp.ErrorDocument.Key)
	}

	return current == errorPage
}
