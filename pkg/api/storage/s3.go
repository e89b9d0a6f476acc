package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ethpandaops/runcenter/pkg/config"
)

// Compile-time interface check.
var _ Backend = (*s3Backend)(nil)

type s3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend creates a Backend backed by S3-compatible storage. Reports
// live under {prefix}/daily/.
func NewS3Backend(cfg *config.S3Config) Backend {
	return &s3Backend{
		client: NewS3Client(cfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// ObjectKey returns the full S3 key of the report for dt under prefix.
func ObjectKey(prefix, dt string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return dailyKey(dt)
	}

	return prefix + "/" + dailyKey(dt)
}

// OpenDailyReport streams {prefix}/daily/daily_report_{dt}.xlsx.
func (b *s3Backend) OpenDailyReport(
	ctx context.Context, dt string,
) (io.ReadCloser, *ReportObject, error) {
	if err := ValidateDT(dt); err != nil {
		return nil, nil, err
	}

	key := ObjectKey(b.prefix, dt)

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, ErrNotFound
		}

		return nil, nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	obj := &ReportObject{
		DT:   dt,
		Key:  key,
		Size: aws.ToInt64(out.ContentLength),
	}

	if out.LastModified != nil {
		obj.ModifiedAt = out.LastModified.UTC()
	}

	return out.Body, obj, nil
}

// ListDailyReports lists report objects under {prefix}/daily/.
func (b *s3Backend) ListDailyReports(
	ctx context.Context,
) ([]ReportObject, error) {
	listPrefix := dailyDir + "/"
	if b.prefix != "" {
		listPrefix = b.prefix + "/" + listPrefix
	}

	paginator := s3.NewListObjectsV2Paginator(
		b.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(b.bucket),
			Prefix: aws.String(listPrefix),
		},
	)

	var reports []ReportObject

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf(
				"listing reports under %q: %w", listPrefix, err,
			)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}

			dt, ok := ParseDailyReportFilename(path.Base(*obj.Key))
			if !ok {
				continue
			}

			r := ReportObject{
				DT:   dt,
				Key:  *obj.Key,
				Size: aws.ToInt64(obj.Size),
			}

			if obj.LastModified != nil {
				r.ModifiedAt = obj.LastModified.UTC()
			}

			reports = append(reports, r)
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].DT < reports[j].DT
	})

	return reports, nil
}

// PutDailyReport uploads the report for dt.
func (b *s3Backend) PutDailyReport(
	ctx context.Context, dt string, body io.Reader, size int64,
) (*ReportObject, error) {
	if err := ValidateDT(dt); err != nil {
		return nil, err
	}

	key := ObjectKey(b.prefix, dt)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentTypeXLSX),
	}

	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("uploading s3://%s/%s: %w", b.bucket, key, err)
	}

	return &ReportObject{DT: dt, Key: key, Size: size}, nil
}

func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	return strings.Contains(err.Error(), "NoSuchKey")
}

// NewS3Client constructs an S3 client from the storage config.
func NewS3Client(cfg *config.S3Config) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return s3.New(s3.Options{}, opts...)
}
