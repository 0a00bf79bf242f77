package cdn

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"

	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/observer"
)

const (
	OriginID = "S3 Website"
	Comment  = "Managed by s3site"
)

// Distribution identifies the distribution fronting the site.
type Distribution struct {
	ID         string
	DomainName string
	Created    bool
	Updated    bool
}

// Reconcile makes sure exactly one distribution serves host from the website
// endpoint. An existing distribution is only written when some required
// field differs, and then with a single update guarded by the version read
// alongside the config.
func Reconcile(ctx context.Context, client CFClient, host, endpoint string, obs observer.Observer) (*Distribution, error) {

	found, err := find(ctx, client, host, endpoint)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return create(ctx, client, host, endpoint, obs)
	}

	return update(ctx, client, found, host, endpoint, obs)
}

// find scans every distribution. One serving host from another origin is a
// conflict wherever it is listed, even after the distribution that matches.
func find(ctx context.Context, client CFClient, host, endpoint string) (*Distribution, error) {

	var found *Distribution
	ldi := cloudfront.ListDistributionsInput{}

	for {
		resp, err := client.ListDistributions(ctx, &ldi)
		if err != nil {
			return nil, translate(err)
		}
		list := resp.DistributionList
		if list == nil {
			return found, nil
		}

		for _, summary := range list.Items {
			id := aws.ToString(summary.Id)

			if hasOrigin(summary.Origins, endpoint) {
				if found == nil {
					found = &Distribution{
						ID:         id,
						DomainName: aws.ToString(summary.DomainName),
					}
				}
				continue
			}
			if summary.Aliases != nil && slices.Contains(summary.Aliases.Items, host) {
				return nil, fault.BadUser("distribution %s already serves %s from a different origin", id, host)
			}
		}

		if !aws.ToBool(list.IsTruncated) || aws.ToString(list.NextMarker) == "" {
			return found, nil
		}
		ldi.Marker = list.NextMarker
	}
}

func hasOrigin(origins *types.Origins, endpoint string) bool {
	if origins == nil {
		return false
	}
	for _, origin := range origins.Items {
		if aws.ToString(origin.DomainName) == endpoint {
			return true
		}
	}
	return false
}

func create(ctx context.Context, client CFClient, host, endpoint string, obs observer.Observer) (*Distribution, error) {

	config := types.DistributionConfig{
		CallerReference: aws.String(uuid.NewString()),
		Comment:         aws.String(Comment),
	}
	if _, err := requireConfig("new", &config, host, endpoint); err != nil {
		return nil, err
	}

	observer.Noticef(obs, observer.Info, "creating distribution for %s", host)

	resp, err := client.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: &config,
	})
	if err != nil {
		return nil, translate(err)
	}

	return &Distribution{
		ID:         aws.ToString(resp.Distribution.Id),
		DomainName: aws.ToString(resp.Distribution.DomainName),
		Created:    true,
	}, nil
}

func update(ctx context.Context, client CFClient, found *Distribution, host, endpoint string, obs observer.Observer) (*Distribution, error) {

	resp, err := client.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{
		Id: aws.String(found.ID),
	})
	if err != nil {
		return nil, translate(err)
	}

	config := resp.DistributionConfig
	if config == nil {
		return nil, fmt.Errorf("distribution %s returned no config", found.ID)
	}

	changed, err := requireConfig(found.ID, config, host, endpoint)
	if err != nil {
		return nil, err
	}
	if !changed {
		observer.Noticef(obs, observer.Debug, "distribution %s is up to date", found.ID)
		return found, nil
	}

	observer.Noticef(obs, observer.Info, "updating distribution %s", found.ID)

	_, err = client.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(found.ID),
		IfMatch:            resp.ETag,
		DistributionConfig: config,
	})
	if err != nil {
		var stale *types.PreconditionFailed
		if errors.As(err, &stale) {
			return nil, fmt.Errorf("distribution %s was modified during the update: %w", found.ID, err)
		}
		return nil, translate(err)
	}

	found.Updated = true
	return found, nil
}

// requireConfig edits config in place until every field the site depends on
// holds its required value and reports whether anything changed. Fields the
// site does not care about are left as they are.
func requireConfig(id string, config *types.DistributionConfig, host, endpoint string) (bool, error) {
	changed := false

	if config.Aliases == nil {
		config.Aliases = &types.Aliases{}
	}
	if !slices.Contains(config.Aliases.Items, host) {
		config.Aliases.Items = append(config.Aliases.Items, host)
		changed = true
	}
	if aws.ToInt32(config.Aliases.Quantity) != int32(len(config.Aliases.Items)) {
		config.Aliases.Quantity = aws.Int32(int32(len(config.Aliases.Items)))
		changed = true
	}

	if config.Origins == nil {
		config.Origins = &types.Origins{}
	}
	switch len(config.Origins.Items) {
	case 0:
		config.Origins.Items = []types.Origin{{}}
		config.Origins.Quantity = aws.Int32(1)
		changed = true
		fallthrough
	case 1:
		if requireOrigin(&config.Origins.Items[0], endpoint) {
			changed = true
		}
	default:
		return false, fault.BadUser("distribution %s has %d origins; only a single origin can be managed", id, len(config.Origins.Items))
	}

	if config.DefaultCacheBehavior == nil {
		config.DefaultCacheBehavior = &types.DefaultCacheBehavior{}
		changed = true
	}
	if requireCacheBehavior(config.DefaultCacheBehavior) {
		changed = true
	}

	if !aws.ToBool(config.Enabled) {
		config.Enabled = aws.Bool(true)
		changed = true
	}

	return changed, nil
}

// Website endpoints only speak http.
func requireOrigin(origin *types.Origin, endpoint string) bool {
	changed := false

	if aws.ToString(origin.Id) != OriginID {
		origin.Id = aws.String(OriginID)
		changed = true
	}
	if aws.ToString(origin.DomainName) != endpoint {
		origin.DomainName = aws.String(endpoint)
		changed = true
	}
	if origin.S3OriginConfig != nil {
		origin.S3OriginConfig = nil
		changed = true
	}

	coc := origin.CustomOriginConfig
	if coc == nil ||
		coc.OriginProtocolPolicy != types.OriginProtocolPolicyHttpOnly ||
		aws.ToInt32(coc.HTTPPort) != 80 ||
		aws.ToInt32(coc.HTTPSPort) != 443 {

		origin.CustomOriginConfig = &types.CustomOriginConfig{
			HTTPPort:             aws.Int32(80),
			HTTPSPort:            aws.Int32(443),
			OriginProtocolPolicy: types.OriginProtocolPolicyHttpOnly,
			OriginSslProtocols: &types.OriginSslProtocols{
				Quantity: aws.Int32(1),
				Items:    []types.SslProtocol{types.SslProtocolTLSv12},
			},
		}
		changed = true
	}

	return changed
}

// requireCacheBehavior switches the default behavior to legacy forwarding
// settings, which cannot coexist with a cache policy.
func requireCacheBehavior(cb *types.DefaultCacheBehavior) bool {
	changed := false

	if aws.ToString(cb.TargetOriginId) != OriginID {
		cb.TargetOriginId = aws.String(OriginID)
		changed = true
	}
	if !aws.ToBool(cb.Compress) {
		cb.Compress = aws.Bool(true)
		changed = true
	}
	if cb.CachePolicyId != nil || cb.OriginRequestPolicyId != nil {
		cb.CachePolicyId = nil
		cb.OriginRequestPolicyId = nil
		changed = true
	}
	if cb.ViewerProtocolPolicy == "" {
		cb.ViewerProtocolPolicy = types.ViewerProtocolPolicyAllowAll
		changed = true
	}
	if cb.MinTTL == nil {
		cb.MinTTL = aws.Int64(0)
		changed = true
	}
	if cb.TrustedSigners == nil {
		cb.TrustedSigners = &types.TrustedSigners{
			Enabled:  aws.Bool(false),
			Quantity: aws.Int32(0),
		}
		changed = true
	}

	fv := cb.ForwardedValues
	if fv == nil {
		fv = &types.ForwardedValues{}
		cb.ForwardedValues = fv
		changed = true
	}
	if fv.QueryString == nil || aws.ToBool(fv.QueryString) {
		fv.QueryString = aws.Bool(false)
		changed = true
	}
	if fv.Cookies == nil || fv.Cookies.Forward != types.ItemSelectionNone {
		fv.Cookies = &types.CookiePreference{
			Forward: types.ItemSelectionNone,
		}
		changed = true
	}

	return changed
}
