package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	perr "timecapsule/internal/platform/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects a bucket and optional custom endpoint (LocalStack, MinIO)
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

// s3API is the slice of the SDK client we call
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores blobs in a bucket
type S3 struct {
	client    s3API
	bucket    string
	publicURL string
}

// NewS3 loads the default AWS credential chain for region
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, perr.BadInputf("blob: s3 bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, perr.Storage(err, "blob: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg), nil
}

func newS3(client s3API, cfg S3Config) *S3 {
	pub := cfg.PublicURL
	if pub == "" {
		switch {
		case cfg.Endpoint != "":
			pub = joinURL(cfg.Endpoint, cfg.Bucket)
		default:
			pub = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3{client: client, bucket: cfg.Bucket, publicURL: pub}
}

// Put digests body first so the request carries a known length
// seekable bodies (multipart temp files) are rewound instead of buffered
func (s *S3) Put(ctx context.Context, folder, name, contentType string, body io.Reader) (Object, error) {
	sum, size, payload, err := prepare(body)
	if err != nil {
		return Object{}, perr.Storage(err, "blob: read upload")
	}

	key := newKey(folder, name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          payload,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata:      map[string]string{"blake3": sum},
	})
	if err != nil {
		return Object{}, perr.Storage(err, "blob: s3 put "+key)
	}

	return Object{
		Key:         key,
		URL:         joinURL(s.publicURL, key),
		ContentType: contentType,
		Size:        size,
		Checksum:    sum,
	}, nil
}

// Delete removes key from the bucket
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return perr.Storage(err, "blob: s3 delete "+key)
	}
	return nil
}

func prepare(body io.Reader) (string, int64, io.Reader, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		sum, n, err := Checksum(rs)
		if err != nil {
			return "", 0, nil, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return "", 0, nil, err
		}
		return sum, n, rs, nil
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", 0, nil, err
	}
	sum, n, _ := Checksum(bytes.NewReader(b))
	return sum, n, bytes.NewReader(b), nil
}
