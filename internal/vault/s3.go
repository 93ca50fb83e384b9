package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Repository persists one JSON object per slot in an S3-compatible bucket
// under users/<user>/<scope>.json. Object puts are atomic on the backend, so
// a reader sees a whole record or none.
type S3Repository struct {
	client *s3.Client
	bucket string
}

// S3Options configures the client for an S3-compatible backend (AWS or
// MinIO-style endpoints).
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
}

// NewS3Repository builds a repository talking to the configured bucket.
func NewS3Repository(ctx context.Context, opts S3Options) (*S3Repository, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %w", ErrStorageIO, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Repository{client: client, bucket: opts.Bucket}, nil
}

func slotObjectKey(key Key) string {
	return "users/" + url.PathEscape(key.UserID) + "/" + url.PathEscape(key.Scope.String()) + ".json"
}

func (r *S3Repository) Get(ctx context.Context, key Key) (*Record, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(slotObjectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt object %s: %w", ErrStorageIO, slotObjectKey(key), err)
	}
	return &rec, nil
}

func (r *S3Repository) Put(ctx context.Context, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(slotObjectKey(record.Key)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

func (r *S3Repository) Delete(ctx context.Context, key Key) error {
	objKey := slotObjectKey(key)

	// S3 deletes are idempotent; probe first so a missing slot is reported.
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

func (r *S3Repository) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	return r.listPrefix(ctx, "users/"+url.PathEscape(userID)+"/")
}

func (r *S3Repository) ListAll(ctx context.Context) ([]*Record, error) {
	return r.listPrefix(ctx, "users/")
}

func (r *S3Repository) listPrefix(ctx context.Context, prefix string) ([]*Record, error) {
	var out []*Record
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			if !strings.HasSuffix(objKey, ".json") {
				continue
			}
			got, err := r.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(r.bucket),
				Key:    aws.String(objKey),
			})
			if err != nil {
				var noKey *types.NoSuchKey
				if errors.As(err, &noKey) {
					// Deleted between list and get; fully absent is fine.
					continue
				}
				return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
			}
			raw, err := io.ReadAll(got.Body)
			got.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
			}
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("%w: corrupt object %s: %w", ErrStorageIO, objKey, err)
			}
			out = append(out, &rec)
		}
	}
	sortRecords(out)
	return out, nil
}
