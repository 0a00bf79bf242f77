package s3io

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the object store as the sync engine sees it. A missing object is
// reported by Head as a nil Object, not as an error.
type Client interface {
	ListBuckets(ctx context.Context) ([]string, error)
	CreateBucket(ctx context.Context, bucket, region string) error
	BucketRegion(ctx context.Context, bucket string) (string, error)
	ForRegion(region string) Client

	SetBucketPrivate(ctx context.Context, bucket string) error
	AllowPublicObjects(ctx context.Context, bucket string) error
	ConfigureWebsite(ctx context.Context, bucket, index, errorPage string) (bool, error)

	Head(ctx context.Context, bucket, key string) (*Object, error)
	Grants(ctx context.Context, bucket, key string) (*AccessPolicy, error)
	Upload(ctx context.Context, bucket, key string, source io.Reader, opts UploadOptions) (int64, error)
	Delete(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket string) ([]Object, error)
}

// Object is the metadata the store holds for a key.
type Object struct {
	Key             string
	Fingerprint     string
	ContentType     string
	ContentEncoding string
	Size            int64
}

type Grant struct {
	GranteeID   string
	GranteeType string
	GranteeURI  string
	Permission  string
}

type AccessPolicy struct {
	OwnerID string
	Grants  []Grant
}

type UploadOptions struct {
	ContentType     string
	ContentEncoding string
	Fingerprint     string
	Size            int64
	Public          bool
	Progress        ProgressFunc
}

const (
	AllUsersURI = "http://acs.amazonaws.com/groups/global/AllUsers"

	// fingerprintMeta carries the content fingerprint so that multipart
	// uploads, whose ETag is not a content hash, stay comparable.
	fingerprintMeta = "s3site-md5"
)

type client struct {
	cfg    aws.Config
	client *s3.Client
}

// NewClient creates a Client from a loaded AWS configuration. Path style
// addressing is used so that bucket names containing dots pass TLS
// validation.
func NewClient(cfg aws.Config) Client {
	cl := client{
		cfg: cfg,
	}
	cl.client = cl.regional(cfg.Region)

	return &cl
}

func (cl *client) regional(region string) *s3.Client {
	return s3.NewFromConfig(cl.cfg, func(o *s3.Options) {
		o.Region = region
		o.UsePathStyle = true
	})
}

func (cl *client) ForRegion(region string) Client {
	cfg := cl.cfg.Copy()
	cfg.Region = region

	return NewClient(cfg)
}
