package api

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/sirupsen/logrus"
)

// presignCacheEntry holds a cached presigned URL and its expiration time.
type presignCacheEntry struct {
	url       string
	expiresAt time.Time
}

// s3Presigner generates presigned GET URLs for daily reports stored in S3.
type s3Presigner struct {
	log           logrus.FieldLogger
	cfg           *config.S3Config
	presignClient *s3.PresignClient
	expiry        time.Duration
	dailyPrefix   string
	cacheTTL      time.Duration
	mu            sync.RWMutex
	cache         map[string]presignCacheEntry
}

// newS3Presigner creates a new S3 presigner from the given configuration.
func newS3Presigner(
	log logrus.FieldLogger,
	cfg *config.S3Config,
) (*s3Presigner, error) {
	expiry, err := cfg.PresignedURLs.ExpiryDuration()
	if err != nil {
		return nil, fmt.Errorf("parsing presigned_urls.expiry: %w", err)
	}

	// Any report key sits next to this sample key.
	dailyPrefix := path.Dir(storage.ObjectKey(cfg.Prefix, "2000-01-01"))

	return &s3Presigner{
		log:           log.WithField("component", "s3-presigner"),
		cfg:           cfg,
		presignClient: s3.NewPresignClient(storage.NewS3Client(cfg)),
		expiry:        expiry,
		dailyPrefix:   dailyPrefix,
		cacheTTL:      expiry / 2,
		cache:         make(map[string]presignCacheEntry),
	}, nil
}

// GeneratePresignedURL returns a presigned GET URL for key that makes the
// browser save the object as filename. Results are cached for half the
// expiry so a served URL always has sufficient validity left.
func (p *s3Presigner) GeneratePresignedURL(
	ctx context.Context,
	key, filename string,
) (string, error) {
	if !p.isAllowedKey(key) {
		return "", fmt.Errorf("key %q is not a daily report key", key)
	}

	now := time.Now()

	p.mu.RLock()
	if entry, ok := p.cache[key]; ok && now.Before(entry.expiresAt) {
		p.mu.RUnlock()

		return entry.url, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.cache[key]; ok && now.Before(entry.expiresAt) {
		return entry.url, nil
	}

	result, err := p.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(p.cfg.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("attachment; filename=" + filename),
		ResponseContentType:        aws.String(storage.ContentTypeXLSX),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("presigning URL for %q: %w", key, err)
	}

	p.cache[key] = presignCacheEntry{
		url:       result.URL,
		expiresAt: now.Add(p.cacheTTL),
	}

	return result.URL, nil
}

// isAllowedKey checks that key is clean and sits directly in the daily
// report prefix.
func (p *s3Presigner) isAllowedKey(key string) bool {
	if key == "" || strings.Contains(key, "..") {
		return false
	}

	if path.Clean(key) != key {
		return false
	}

	if path.Dir(key) != p.dailyPrefix {
		return false
	}

	_, ok := storage.ParseDailyReportFilename(path.Base(key))

	return ok
}
