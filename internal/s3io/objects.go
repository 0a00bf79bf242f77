package s3io

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func (cl *client) Head(ctx context.Context, bucket, key string) (*Object, error) {

	resp, err := cl.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if httpStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, translate("head object", err)
	}

	return &Object{
		Key:             key,
		Fingerprint:     remoteFingerprint(aws.ToString(resp.ETag), resp.Metadata),
		ContentType:     aws.ToString(resp.ContentType),
		ContentEncoding: aws.ToString(resp.ContentEncoding),
		Size:            aws.ToInt64(resp.ContentLength),
	}, nil
}

// remoteFingerprint prefers the fingerprint recorded at upload time. A plain
// ETag is the MD5 of the content; a multipart ETag ("<hash>-<parts>") is not,
// and yields no fingerprint.
func remoteFingerprint(etag string, metadata map[string]string) string {
	for k, v := range metadata {
		if strings.ToLower(k) == fingerprintMeta {
			return strings.ToLower(v)
		}
	}

	etag = strings.Trim(etag, "\"")
	if strings.Contains(etag, "-") {
		return ""
	}

	return strings.ToLower(etag)
}

func (cl *client) Grants(ctx context.Context, bucket, key string) (*AccessPolicy, error) {

	resp, err := cl.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("get object acl", err)
	}

	policy := AccessPolicy{}
	if resp.Owner != nil {
		policy.OwnerID = aws.ToString(resp.Owner.ID)
	}
	for _, grant := range resp.Grants {
		g := Grant{
			Permission: string(grant.Permission),
		}
		if grant.Grantee != nil {
			g.GranteeID = aws.ToString(grant.Grantee.ID)
			g.GranteeType = string(grant.Grantee.Type)
			g.GranteeURI = aws.ToString(grant.Grantee.URI)
		}
		policy.Grants = append(policy.Grants, g)
	}

	return &policy, nil
}

func (cl *client) Delete(ctx context.Context, bucket, key string) error {

	_, err := cl.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return translate("delete object", err)
}

func (cl *client) List(ctx context.Context, bucket string) ([]Object, error) {

	var objects []Object

	paginator := s3.NewListObjectsV2Paginator(cl.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translate("list objects", err)
		}
		for _, object := range page.Contents {
			objects = append(objects, Object{
				Key:         aws.ToString(object.Key),
				Fingerprint: remoteFingerprint(aws.ToString(object.ETag), nil),
				Size:        aws.ToInt64(object.Size),
			})
		}
	}

	return objects, nil
}
