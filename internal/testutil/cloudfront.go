package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/smithy-go"
)

type distribution struct {
	id      string
	domain  string
	version int
	config  *cftypes.DistributionConfig
}

func (d *distribution) etag() string {
	return fmt.Sprintf("E%d", d.version)
}

// CloudFront is an in-memory CloudFront control plane.
//
// BusyInvalidations is the number of upcoming CreateInvalidation calls that
// fail with TooManyInvalidationsInProgress. PendingPolls is the number of
// upcoming GetDistribution calls that report the distribution in progress.
// ConcurrentEdit changes the stored config between a read and the next
// update, making that update stale. Aliases listed in ForeignAliases belong
// to another account and are rejected on create and update.
type CloudFront struct {
	mu    sync.Mutex
	dists []*distribution

	OptInRequired     bool
	BusyInvalidations int
	PendingPolls      int
	ConcurrentEdit    bool
	ForeignAliases    []string

	ListCalls         int
	Creates           int
	Updates           int
	InvalidationCalls int
	Polls             int
	Invalidations     [][]string
	CallerReferences  []string
}

func NewCloudFront() *CloudFront {
	return &CloudFront{}
}

// AddDistribution registers a distribution with the given aliases and
// origin domains and returns its id.
func (cf *CloudFront) AddDistribution(aliases []string, origins ...string) string {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	config := &cftypes.DistributionConfig{
		CallerReference: aws.String(fmt.Sprintf("console-%d", len(cf.dists))),
		Comment:         aws.String("made by hand"),
		Enabled:         aws.Bool(true),
		Aliases: &cftypes.Aliases{
			Quantity: aws.Int32(int32(len(aliases))),
			Items:    slices.Clone(aliases),
		},
		Origins: &cftypes.Origins{
			Quantity: aws.Int32(int32(len(origins))),
		},
		DefaultCacheBehavior: &cftypes.DefaultCacheBehavior{
			TargetOriginId:       aws.String("default"),
			ViewerProtocolPolicy: cftypes.ViewerProtocolPolicyRedirectToHttps,
			CachePolicyId:        aws.String("658327ea-f89d-4fab-a63d-7e88639e58f6"),
		},
	}
	for i, domain := range origins {
		config.Origins.Items = append(config.Origins.Items, cftypes.Origin{
			Id:             aws.String(fmt.Sprintf("origin-%d", i)),
			DomainName:     aws.String(domain),
			S3OriginConfig: &cftypes.S3OriginConfig{OriginAccessIdentity: aws.String("")},
		})
	}

	return cf.add(config).id
}

func (cf *CloudFront) add(config *cftypes.DistributionConfig) *distribution {
	n := len(cf.dists) + 1
	d := &distribution{
		id:      fmt.Sprintf("EDIST%04d", n),
		domain:  fmt.Sprintf("d%04d.cloudfront.net", n),
		version: 1,
		config:  clone(config),
	}
	cf.dists = append(cf.dists, d)
	return d
}

// Config returns a copy of the stored config of distribution id.
func (cf *CloudFront) Config(id string) *cftypes.DistributionConfig {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	d := cf.find(id)
	if d == nil {
		return nil
	}
	return clone(d.config)
}

func (cf *CloudFront) DistributionIDs() []string {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	var ids []string
	for _, d := range cf.dists {
		ids = append(ids, d.id)
	}
	return ids
}

func (cf *CloudFront) find(id string) *distribution {
	for _, d := range cf.dists {
		if d.id == id {
			return d
		}
	}
	return nil
}

func clone(config *cftypes.DistributionConfig) *cftypes.DistributionConfig {
	data, err := json.Marshal(config)
	if err != nil {
		panic(err)
	}
	var out cftypes.DistributionConfig
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (cf *CloudFront) optIn() error {
	if cf.OptInRequired {
		return &smithy.GenericAPIError{
			Code:    "OptInRequired",
			Message: "The AWS Access Key Id needs a subscription for the service",
		}
	}
	return nil
}

func (cf *CloudFront) checkAliases(config *cftypes.DistributionConfig) error {
	if config.Aliases == nil {
		return nil
	}
	for _, alias := range config.Aliases.Items {
		if slices.Contains(cf.ForeignAliases, alias) {
			return &cftypes.CNAMEAlreadyExists{
				Message: aws.String("One or more of the CNAMEs you provided are already associated with a different resource."),
			}
		}
	}
	return nil
}

func noSuchDistribution(id string) error {
	return &cftypes.NoSuchDistribution{
		Message: aws.String("no distribution " + id),
	}
}

func (cf *CloudFront) ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.ListCalls++
	if err := cf.optIn(); err != nil {
		return nil, err
	}

	list := cftypes.DistributionList{
		IsTruncated: aws.Bool(false),
		Quantity:    aws.Int32(int32(len(cf.dists))),
	}
	for _, d := range cf.dists {
		config := clone(d.config)
		list.Items = append(list.Items, cftypes.DistributionSummary{
			Id:         aws.String(d.id),
			DomainName: aws.String(d.domain),
			Aliases:    config.Aliases,
			Origins:    config.Origins,
			Enabled:    config.Enabled,
		})
	}

	return &cloudfront.ListDistributionsOutput{
		DistributionList: &list,
	}, nil
}

func (cf *CloudFront) GetDistribution(ctx context.Context, params *cloudfront.GetDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	d := cf.find(aws.ToString(params.Id))
	if d == nil {
		return nil, noSuchDistribution(aws.ToString(params.Id))
	}

	cf.Polls++
	status := "Deployed"
	pending := int32(0)
	if cf.PendingPolls > 0 {
		cf.PendingPolls--
		status = "InProgress"
		pending = 1
	}

	return &cloudfront.GetDistributionOutput{
		Distribution: &cftypes.Distribution{
			Id:                            aws.String(d.id),
			DomainName:                    aws.String(d.domain),
			Status:                        aws.String(status),
			InProgressInvalidationBatches: aws.Int32(pending),
			DistributionConfig:            clone(d.config),
		},
		ETag: aws.String(d.etag()),
	}, nil
}

func (cf *CloudFront) GetDistributionConfig(ctx context.Context, params *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	d := cf.find(aws.ToString(params.Id))
	if d == nil {
		return nil, noSuchDistribution(aws.ToString(params.Id))
	}

	out := &cloudfront.GetDistributionConfigOutput{
		DistributionConfig: clone(d.config),
		ETag:               aws.String(d.etag()),
	}
	if cf.ConcurrentEdit {
		cf.ConcurrentEdit = false
		d.version++
	}

	return out, nil
}

func (cf *CloudFront) CreateDistribution(ctx context.Context, params *cloudfront.CreateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	if err := cf.optIn(); err != nil {
		return nil, err
	}
	if err := cf.checkAliases(params.DistributionConfig); err != nil {
		return nil, err
	}

	cf.Creates++
	d := cf.add(params.DistributionConfig)

	return &cloudfront.CreateDistributionOutput{
		Distribution: &cftypes.Distribution{
			Id:                 aws.String(d.id),
			DomainName:         aws.String(d.domain),
			Status:             aws.String("InProgress"),
			DistributionConfig: clone(d.config),
		},
		ETag: aws.String(d.etag()),
	}, nil
}

func (cf *CloudFront) UpdateDistribution(ctx context.Context, params *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	d := cf.find(aws.ToString(params.Id))
	if d == nil {
		return nil, noSuchDistribution(aws.ToString(params.Id))
	}
	if aws.ToString(params.IfMatch) != d.etag() {
		return nil, &cftypes.PreconditionFailed{
			Message: aws.String("The If-Match version is missing or not valid for the resource."),
		}
	}

	if err := cf.checkAliases(params.DistributionConfig); err != nil {
		return nil, err
	}

	cf.Updates++
	d.version++
	d.config = clone(params.DistributionConfig)

	return &cloudfront.UpdateDistributionOutput{
		Distribution: &cftypes.Distribution{
			Id:                 aws.String(d.id),
			DomainName:         aws.String(d.domain),
			Status:             aws.String("InProgress"),
			DistributionConfig: clone(d.config),
		},
		ETag: aws.String(d.etag()),
	}, nil
}

func (cf *CloudFront) CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.InvalidationCalls++
	if d := cf.find(aws.ToString(params.DistributionId)); d == nil {
		return nil, noSuchDistribution(aws.ToString(params.DistributionId))
	}

	batch := params.InvalidationBatch
	cf.CallerReferences = append(cf.CallerReferences, aws.ToString(batch.CallerReference))

	if cf.BusyInvalidations > 0 {
		cf.BusyInvalidations--
		return nil, &cftypes.TooManyInvalidationsInProgress{
			Message: aws.String("Processing your request will cause you to exceed the maximum number of in-progress wildcard invalidations."),
		}
	}

	cf.Invalidations = append(cf.Invalidations, slices.Clone(batch.Paths.Items))

	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{
			Id:                aws.String(fmt.Sprintf("I%d", len(cf.Invalidations))),
			Status:            aws.String("InProgress"),
			InvalidationBatch: batch,
		},
	}, nil
}
