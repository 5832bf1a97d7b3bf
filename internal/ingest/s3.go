package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/resilience"
)

// S3API is the subset of the S3 client the source uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from configuration. Static keys are used
// when both are set; otherwise the default credential chain applies. The
// SDK's own retries are off because S3Source retries each call.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: load aws config")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// S3Source reads the data tree from a bucket. Object keys are the layout
// names behind Prefix.
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
	Layout Layout
	// Retry applies to every list page and object fetch. The zero value
	// uses resilience defaults.
	Retry resilience.Policy
}

// Files implements Source.
func (s *S3Source) Files(ctx context.Context) ([]File, error) {
	var (
		names []string
		token *string
	)
	for {
		in := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(s.Prefix),
			ContinuationToken: token,
		}
		out, err := resilience.Retry(ctx, s.Retry, "s3 list", func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
			return s.Client.ListObjectsV2(ctx, in)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: list s3://%s/%s", s.Bucket, s.Prefix)
		}
		for _, obj := range out.Contents {
			if name, ok := strings.CutPrefix(aws.ToString(obj.Key), s.Prefix); ok && name != "" {
				names = append(names, name)
			}
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return s.Layout.plan(names), nil
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, f File) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + f.Name),
	}
	out, err := resilience.Retry(ctx, s.Retry, "s3 get", func(ctx context.Context) (*s3.GetObjectOutput, error) {
		return s.Client.GetObject(ctx, in)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: get s3://%s/%s%s", s.Bucket, s.Prefix, f.Name)
	}
	return out.Body, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.Bucket + "/" + s.Prefix
}
