// Package s3 implements objectstore.Client against Amazon S3 and
// S3-compatible services such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/objectstore"
)

// Config holds the connection settings for one bucket.
type Config struct {
	// Region is the AWS region (required).
	Region string

	// Bucket is the bucket name (required).
	Bucket string

	// Endpoint overrides the S3 endpoint, for MinIO/Localstack. Setting it
	// also forces path-style addressing.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When both
	// are empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Store is an objectstore.Client backed by one S3 bucket.
//
// Retries are intentionally disabled on the underlying SDK client: the
// metadata listing protocol reissues pages itself, with its own backoff, and
// double-retrying would multiply the worst-case latency. Store only
// classifies errors.
type Store struct {
	client     *awsS3.Client
	bucket     string
	classifier *retry.Standard
}

var _ objectstore.Client = (*Store)(nil)

// New creates a Store for the configured bucket. It validates configuration
// and builds the SDK client but performs no network I/O; call TestBucket to
// verify connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 object store: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 object store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry policy belongs to the listing protocol, not the transport.
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return aws.NopRetryer{}
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 object store initialized: bucket=%s, region=%s", cfg.Bucket, cfg.Region)

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		// The SDK's standard retryer knows which HTTP status codes and
		// error codes are transient; reuse it purely as a classifier.
		classifier: retry.NewStandard(),
	}, nil
}

// ListPage fetches one page of a marker-paginated bucket listing.
func (s *Store) ListPage(ctx context.Context, req objectstore.ListRequest) (*objectstore.Page, error) {
	input := &awsS3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	if req.Marker != "" {
		input.Marker = aws.String(req.Marker)
	}
	if req.Delimiter != "" {
		input.Delimiter = aws.String(req.Delimiter)
	}
	if req.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(req.MaxKeys))
	}

	out, err := s.client.ListObjects(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects in bucket %q: %w", s.bucket, err)
	}

	page := &objectstore.Page{
		Keys:           make([]objectstore.ObjectInfo, 0, len(out.Contents)),
		CommonPrefixes: make([]string, 0, len(out.CommonPrefixes)),
		Truncated:      aws.ToBool(out.IsTruncated),
		NextMarker:     aws.ToString(out.NextMarker),
	}

	for _, obj := range out.Contents {
		info := objectstore.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		}
		if obj.Owner != nil {
			info.Owner = aws.ToString(obj.Owner.ID)
		}
		page.Keys = append(page.Keys, info)
	}

	for _, cp := range out.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, aws.ToString(cp.Prefix))
	}

	return page, nil
}

// Permanent S3 error codes: retrying these cannot succeed without operator
// intervention.
var permanentCodes = map[string]struct{}{
	"NoSuchBucket":          {},
	"AccessDenied":          {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"InvalidBucketName":     {},
	"PermanentRedirect":     {},
	"AccountProblem":        {},
	"MethodNotAllowed":      {},
	"NotSignedUp":           {},
}

// IsRetryable reports whether a ListPage error is transient.
func (s *Store) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, permanent := permanentCodes[apiErr.ErrorCode()]; permanent {
			return false
		}
	}

	if s.classifier.IsErrorRetryable(err) {
		return true
	}

	// Errors the SDK cannot classify (connection resets mid-body, DNS
	// hiccups) surface as plain transport errors and are worth a retry.
	return !errors.As(err, &apiErr)
}

// TestBucket checks that the bucket exists and is accessible.
func (s *Store) TestBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awsS3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q is not accessible: %w", s.bucket, err)
	}
	return nil
}
