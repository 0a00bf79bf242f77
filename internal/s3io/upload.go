package s3io

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Upload writes content and access policy in the same call; there is no
// separate ACL write.
func (cl *client) Upload(ctx context.Context, bucket, key string, source io.Reader, opts UploadOptions) (int64, error) {

	// create the map for metadata
	mdata := make(map[string]string)
	if opts.Fingerprint != "" {
		mdata[fingerprintMeta] = opts.Fingerprint
	}

	acl := types.ObjectCannedACLPrivate
	if opts.Public {
		acl = types.ObjectCannedACLPublicRead
	}

	// count how many bytes are read so progress can be reported
	counter := NewReadCounter(source, opts.Size, opts.Progress)
	defer counter.Close()

	poi := s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     counter,
		ACL:      acl,
		Metadata: mdata,
	}
	if opts.ContentType != "" {
		poi.ContentType = aws.String(opts.ContentType)
	}
	if opts.ContentEncoding != "" {
		poi.ContentEncoding = aws.String(opts.ContentEncoding)
	}

	// the counter hides the file's Seek so the uploader streams it in parts
	uploader := manager.NewUploader(cl.client)

	_, err := uploader.Upload(ctx, &poi)

	return counter.TotalBytes(), translate("upload", err)
}
