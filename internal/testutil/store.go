// Package testutil holds in-memory stand-ins for the remote services.
package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"slices"
	"sort"
	"sync"

	"github.com/studio1767/s3site/internal/s3io"
)

const OwnerID = "owner-canonical-id"

type storedObject struct {
	object s3io.Object
	data   []byte
	policy s3io.AccessPolicy
}

type bucket struct {
	region    string
	private   bool
	public    bool
	index     string
	errorPage string
	website   bool
	objects   map[string]*storedObject
}

// Store is an in-memory object store. Bucket names listed in Taken belong
// to someone else; DenyAll rejects every call as access denied and
// DenyWrites only uploads and deletes.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	Taken      map[string]bool
	DenyAll    bool
	DenyWrites bool

	Uploads        int
	Deletes        int
	WebsiteWrites  int
	CreatedBuckets []string
}

func NewStore() *Store {
	return &Store{
		buckets: make(map[string]*bucket),
		Taken:   make(map[string]bool),
	}
}

// AddBucket creates a bucket directly, as if made outside the tool.
func (s *Store) AddBucket(name, region string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[name] = &bucket{
		region:  region,
		objects: make(map[string]*storedObject),
	}
}

// PutObject stores data under key directly, without counting an upload.
func (s *Store) PutObject(bucketName, key string, data []byte, contentType string, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[bucketName].objects[key] = newObject(key, data, contentType, "", public)
}

// SetPolicy replaces the grants on an object.
func (s *Store) SetPolicy(bucketName, key string, policy s3io.AccessPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[bucketName].objects[key].policy = policy
}

// Object returns the stored metadata and content for key.
func (s *Store) Object(bucketName, key string) (*s3io.Object, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucketName]
	if !ok {
		return nil, nil, false
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, nil, false
	}
	object := obj.object
	return &object, slices.Clone(obj.data), true
}

func (s *Store) IsPublic(bucketName, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buckets[bucketName].objects[key].policy.Grants) == 2
}

func (s *Store) Keys(bucketName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.buckets[bucketName].objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) BucketNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Website returns the index and error documents of a website bucket.
func (s *Store) Website(bucketName string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[bucketName]
	return b.index, b.errorPage, b.website
}

// Settings reports whether the bucket ACL was made private and public
// objects were allowed.
func (s *Store) Settings(bucketName string) (private bool, publicObjects bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[bucketName]
	return b.private, b.public
}

func newObject(key string, data []byte, contentType, contentEncoding string, public bool) *storedObject {
	sum := md5.Sum(data)
	if contentType == "" {
		contentType = "binary/octet-stream"
	}

	policy := s3io.AccessPolicy{
		OwnerID: OwnerID,
		Grants: []s3io.Grant{{
			GranteeID:   OwnerID,
			GranteeType: "CanonicalUser",
			Permission:  "FULL_CONTROL",
		}},
	}
	if public {
		policy.Grants = append(policy.Grants, s3io.Grant{
			GranteeType: "Group",
			GranteeURI:  s3io.AllUsersURI,
			Permission:  "READ",
		})
	}

	return &storedObject{
		object: s3io.Object{
			Key:             key,
			Fingerprint:     hex.EncodeToString(sum[:]),
			ContentType:     contentType,
			ContentEncoding: contentEncoding,
			Size:            int64(len(data)),
		},
		data:   data,
		policy: policy,
	}
}

func (s *Store) denied(operation string) error {
	if s.DenyAll {
		return &s3io.ErrAccessDenied{
			Operation: operation,
			Msg:       "the credentials are not allowed to do this",
		}
	}
	return nil
}

func (s *Store) lookup(name string) (*bucket, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, &s3io.ErrAccessDenied{
			Operation: "lookup",
			Msg:       "no such bucket " + name,
		}
	}
	return b, nil
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	if err := s.denied("list buckets"); err != nil {
		return nil, err
	}
	return s.BucketNames(), nil
}

func (s *Store) CreateBucket(ctx context.Context, name, region string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.denied("create bucket"); err != nil {
		return err
	}
	if s.Taken[name] {
		return &s3io.ErrBucketTaken{Bucket: name}
	}
	if _, ok := s.buckets[name]; ok {
		return nil
	}

	s.buckets[name] = &bucket{
		region:  region,
		objects: make(map[string]*storedObject),
	}
	s.CreatedBuckets = append(s.CreatedBuckets, name)
	return nil
}

func (s *Store) BucketRegion(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	return b.region, nil
}

// ForRegion returns the store itself; buckets are global here.
func (s *Store) ForRegion(region string) s3io.Client {
	return s
}

func (s *Store) SetBucketPrivate(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return err
	}
	b.private = true
	return nil
}

func (s *Store) AllowPublicObjects(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return err
	}
	b.public = true
	return nil
}

func (s *Store) ConfigureWebsite(ctx context.Context, name, index, errorPage string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if b.website && b.index == index && b.errorPage == errorPage {
		return false, nil
	}
	b.website = true
	b.index = index
	b.errorPage = errorPage
	s.WebsiteWrites++
	return true, nil
}

func (s *Store) Head(ctx context.Context, name, key string) (*s3io.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, nil
	}
	object := obj.object
	return &object, nil
}

func (s *Store) Grants(ctx context.Context, name, key string) (*s3io.AccessPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, &s3io.ErrAccessDenied{Operation: "get object acl", Msg: "no such key " + key}
	}
	policy := s3io.AccessPolicy{
		OwnerID: obj.policy.OwnerID,
		Grants:  slices.Clone(obj.policy.Grants),
	}
	return &policy, nil
}

func (s *Store) Upload(ctx context.Context, name, key string, source io.Reader, opts s3io.UploadOptions) (int64, error) {
	counter := s3io.NewReadCounter(source, opts.Size, opts.Progress)
	defer counter.Close()

	data, err := io.ReadAll(counter)
	if err != nil {
		return counter.TotalBytes(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DenyWrites {
		return 0, &s3io.ErrAccessDenied{Operation: "upload", Msg: "PutObject is not allowed"}
	}
	b, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	b.objects[key] = newObject(key, data, opts.ContentType, opts.ContentEncoding, opts.Public)
	s.Uploads++

	return counter.TotalBytes(), nil
}

func (s *Store) Delete(ctx context.Context, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DenyWrites {
		return &s3io.ErrAccessDenied{Operation: "delete", Msg: "DeleteObject is not allowed"}
	}

	b, err := s.lookup(name)
	if err != nil {
		return err
	}
	delete(b.objects, key)
	s.Deletes++
	return nil
}

func (s *Store) List(ctx context.Context, name string) ([]s3io.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	objects := make([]s3io.Object, 0, len(b.objects))
	for _, obj := range b.objects {
		objects = append(objects, obj.object)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})
	return objects, nil
}
