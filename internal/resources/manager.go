package resources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"fnprobe/internal/clock"
	"fnprobe/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by the manager.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// Manager creates and deletes the ephemeral resources of one session.
type Manager struct {
	client    S3API
	clock     clock.Clock
	sessionID string
	prefix    string
	region    string

	mu        sync.Mutex
	live      []EphemeralResource
	buckets   map[string]string // logical name -> physical bucket
	succeeded int
	attempts  int
}

// NewManager creates a manager for sessionID. Bucket names start with prefix.
func NewManager(client S3API, sessionID, prefix, region string, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{
		client:    client,
		clock:     clk,
		sessionID: sessionID,
		prefix:    prefix,
		region:    region,
		buckets:   make(map[string]string),
	}
}

// Provision creates the resource described by spec and tags it with the
// session id.
func (m *Manager) Provision(ctx context.Context, spec Spec) (EphemeralResource, error) {
	tags := map[string]string{
		SessionTagKey:     m.sessionID,
		LogicalNameTagKey: spec.Name,
	}

	var (
		res EphemeralResource
		err error
	)
	switch spec.Kind {
	case KindBucket:
		res, err = m.createBucket(ctx, spec, tags)
	case KindObject:
		res, err = m.putObject(ctx, spec, tags)
	default:
		err = fmt.Errorf("unsupported resource kind %q", spec.Kind)
	}
	if err != nil {
		return EphemeralResource{}, &ProvisionError{Spec: spec.Name, Err: err}
	}

	m.mu.Lock()
	m.live = append(m.live, res)
	m.succeeded++
	if res.Kind == KindBucket {
		m.buckets[res.LogicalName] = res.ID
	}
	m.mu.Unlock()

	logging.Info("Resources", "Provisioned %s %s (%s)", res.Kind, res.ID, res.LogicalName)
	return res, nil
}

func (m *Manager) createBucket(ctx context.Context, spec Spec, tags map[string]string) (EphemeralResource, error) {
	name := BucketName(m.prefix, m.sessionID, spec.Name)

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if m.region != "" && m.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(m.region),
		}
	}
	if _, err := m.client.CreateBucket(ctx, input); err != nil {
		return EphemeralResource{}, fmt.Errorf("create bucket %s: %w", name, err)
	}

	res := EphemeralResource{
		Kind:        KindBucket,
		ID:          name,
		LogicalName: spec.Name,
		CreatedAt:   m.clock.Now(),
		Tags:        tags,
	}

	if _, err := m.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &types.Tagging{TagSet: tagSet(tags)},
	}); err != nil {
		// An untagged bucket cannot be found by the sweep, so do not keep it.
		if _, delErr := m.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); delErr != nil {
			logging.Error("Resources", delErr, "Failed to remove untagged bucket %s", name)
		}
		return EphemeralResource{}, fmt.Errorf("tag bucket %s: %w", name, err)
	}
	return res, nil
}

func (m *Manager) putObject(ctx context.Context, spec Spec, tags map[string]string) (EphemeralResource, error) {
	m.mu.Lock()
	bucket, ok := m.buckets[spec.Bucket]
	m.mu.Unlock()
	if !ok {
		return EphemeralResource{}, fmt.Errorf("bucket %q has not been provisioned", spec.Bucket)
	}

	if _, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(bucket),
		Key:     aws.String(spec.Key),
		Body:    strings.NewReader(spec.Content),
		Tagging: aws.String(encodeTags(tags)),
	}); err != nil {
		return EphemeralResource{}, fmt.Errorf("put object %s/%s: %w", bucket, spec.Key, err)
	}

	return EphemeralResource{
		Kind:        KindObject,
		ID:          spec.Key,
		LogicalName: spec.Name,
		Bucket:      bucket,
		CreatedAt:   m.clock.Now(),
		Tags:        tags,
	}, nil
}

// Teardown deletes one resource. A bucket is emptied first.
func (m *Manager) Teardown(ctx context.Context, res EphemeralResource) error {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	var err error
	switch res.Kind {
	case KindObject:
		_, err = m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(res.Bucket),
			Key:    aws.String(res.ID),
		})
	case KindBucket:
		err = m.deleteBucket(ctx, res.ID)
	default:
		err = fmt.Errorf("unsupported resource kind %q", res.Kind)
	}
	if err != nil {
		return &TeardownError{Resource: res.ID, Err: err}
	}

	m.forget(res)
	logging.Info("Resources", "Deleted %s %s", res.Kind, res.ID)
	return nil
}

func (m *Manager) deleteBucket(ctx context.Context, bucket string) error {
	p := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects of %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			}); err != nil {
				return fmt.Errorf("delete object %s/%s: %w", bucket, aws.ToString(obj.Key), err)
			}
		}
	}

	if _, err := m.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("delete bucket %s: %w", bucket, err)
	}
	return nil
}

// TeardownAll deletes every live resource, newest first, and returns the
// ones that could not be deleted. Failures are logged, never returned as
// errors.
func (m *Manager) TeardownAll(ctx context.Context) []Orphan {
	m.mu.Lock()
	live := make([]EphemeralResource, len(m.live))
	copy(live, m.live)
	m.mu.Unlock()

	var orphans []Orphan
	for i := len(live) - 1; i >= 0; i-- {
		res := live[i]
		if err := m.Teardown(ctx, res); err != nil {
			logging.Error("Resources", err, "Teardown failed, %s %s left for orphan sweep (session %s)", res.Kind, res.ID, m.sessionID)
			orphans = append(orphans, Orphan{
				Kind:        res.Kind,
				ID:          res.ID,
				LogicalName: res.LogicalName,
				SessionID:   m.sessionID,
				Error:       err.Error(),
			})
		}
	}
	return orphans
}

// WithResources provisions specs in order, calls fn with the provisioned ids
// by logical name, and always tears down everything that was provisioned,
// including when a later provisioning step fails. fn is not called when
// provisioning fails; the *ProvisionError is returned instead.
func (m *Manager) WithResources(ctx context.Context, specs []Spec, fn func(ids map[string]string) error) (orphans []Orphan, err error) {
	defer func() {
		orphans = m.TeardownAll(context.WithoutCancel(ctx))
	}()

	ids := make(map[string]string, len(specs))
	for _, spec := range specs {
		res, err := m.Provision(ctx, spec)
		if err != nil {
			logging.Error("Resources", err, "Provisioning %s failed", spec.Name)
			return nil, err
		}
		ids[res.LogicalName] = res.ID
	}

	return nil, fn(ids)
}

// Sweep deletes every bucket carrying the session tag for sessionID,
// independently of what this manager provisioned. It is the out-of-band
// cleanup for orphans left by a failed teardown.
func (m *Manager) Sweep(ctx context.Context, sessionID string) ([]string, []Orphan, error) {
	var candidates []string
	p := s3.NewListBucketsPaginator(m.client, &s3.ListBucketsInput{Prefix: aws.String(m.prefix)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list buckets: %w", err)
		}
		for _, b := range page.Buckets {
			name := aws.ToString(b.Name)
			if strings.HasPrefix(name, m.prefix) {
				candidates = append(candidates, name)
			}
		}
	}

	var (
		deleted []string
		orphans []Orphan
	)
	for _, name := range candidates {
		out, err := m.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(name)})
		if err != nil {
			logging.Debug("Resources", "Skipping %s, tags unreadable: %v", name, err)
			continue
		}
		if tagValue(out.TagSet, SessionTagKey) != sessionID {
			continue
		}

		m.mu.Lock()
		m.attempts++
		m.mu.Unlock()
		if err := m.deleteBucket(ctx, name); err != nil {
			logging.Error("Resources", err, "Sweep could not delete %s", name)
			orphans = append(orphans, Orphan{Kind: KindBucket, ID: name, SessionID: sessionID, Error: err.Error()})
			continue
		}
		logging.Info("Resources", "Swept bucket %s of session %s", name, sessionID)
		deleted = append(deleted, name)
	}

	if len(deleted) == 0 && len(orphans) == 0 {
		logging.Info("Resources", "No resources tagged with session %s", sessionID)
	}
	return deleted, orphans, nil
}

// Live returns the resources provisioned and not yet deleted.
func (m *Manager) Live() []EphemeralResource {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EphemeralResource, len(m.live))
	copy(out, m.live)
	return out
}

// Provisioned returns the number of successful provisions.
func (m *Manager) Provisioned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.succeeded
}

// Attempts returns the number of teardown attempts made so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *Manager) forget(res EphemeralResource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.live {
		if r.Kind == res.Kind && r.ID == res.ID && r.Bucket == res.Bucket {
			m.live = append(m.live[:i], m.live[i+1:]...)
			break
		}
	}
	if res.Kind == KindBucket {
		delete(m.buckets, res.LogicalName)
	}
}

func tagSet(tags map[string]string) []types.Tag {
	keys := []string{SessionTagKey, LogicalNameTagKey}
	set := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			set = append(set, types.Tag{Key: aws.String(k), Value: aws.String(v)})
		}
	}
	return set
}

func encodeTags(tags map[string]string) string {
	values := url.Values{}
	for k, v := range tags {
		values.Set(k, v)
	}
	return values.Encode()
}

func tagValue(tags []types.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

// IsProvisionError reports whether err is a provisioning failure.
func IsProvisionError(err error) bool {
	var pe *ProvisionError
	return errors.As(err, &pe)
}
