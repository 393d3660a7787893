// utils/archive.go
package utils

import (
	"bytes"
	"context"
	"fmt"

	appconfig "habit-league-system/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

// SnapshotArchive ships weekly league snapshots to R2 for long-term
// reporting. The live database keeps its own copy; the archive is a
// convenience for analytics, so callers treat upload failures as warnings.
type SnapshotArchive struct {
	client *s3.Client
	bucket string
}

// NewSnapshotArchive builds an R2-backed archive from config. Returns
// (nil, nil) when no bucket is configured, since archiving is optional.
func NewSnapshotArchive(appCfg *appconfig.AppConfig) (*SnapshotArchive, error) {
	if appCfg.R2Bucket == "" {
		return nil, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			appCfg.R2AccessKeyID, appCfg.R2AccessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", appCfg.R2AccountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	return &SnapshotArchive{
		client: s3.NewFromConfig(cfg),
		bucket: appCfg.R2Bucket,
	}, nil
}

// ArchiveSnapshot uploads a snapshot's rankings JSON under a key derived
// from the period, e.g. "league-snapshots/2026-w35.json".
func (a *SnapshotArchive) ArchiveSnapshot(periodKey string, body []byte) error {
	key := fmt.Sprintf("league-snapshots/%s.json", slug.Make(periodKey))

	_, err := a.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to R2: %w", err)
	}
	return nil
}
