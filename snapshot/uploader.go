// Package snapshot exports a completed stage's final match graph and
// standings as a JSON archival object to an S3-compatible bucket,
// adapted from the teacher's Cloudflare R2 uploader
// (storage/cloudfare_r2.go): the same FileUploader-shaped interface
// and endpoint-resolver construction, repurposed from "logo uploads"
// to "bracket archival snapshots" per SPEC_FULL §6.4/§6.5.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Dosada05/bracketengine/engine"
)

// UploadResult mirrors the teacher's storage.UploadResult shape.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// Uploader is the narrow surface ExportStageSnapshot needs; the same
// role the teacher's FileUploader interface plays, trimmed to what a
// one-shot JSON archival write actually uses.
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
}

// Config configures the S3-compatible bucket snapshots are written to.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type s3Uploader struct {
	client *s3.Client
	bucket string
}

// NewUploader constructs an S3-compatible uploader, generalizing the
// teacher's R2-specific endpoint resolver to any S3-compatible
// endpoint (R2, MinIO, or AWS S3 itself) by making the endpoint
// configurable instead of hardcoded to the R2 URL pattern.
func NewUploader(ctx context.Context, cfg Config) (Uploader, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("snapshot: bucket, access key id and secret access key are required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(orDefault(cfg.Region, "auto")),
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: orDefault(cfg.Region, "auto")}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load aws config: %w", err)
	}

	return &s3Uploader{client: s3.NewFromConfig(sdkCfg), bucket: cfg.Bucket}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*UploadResult, error) {
	out, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: upload %s: %w", key, err)
	}
	etag := ""
	if out.ETag != nil {
		etag = strings.Trim(*out.ETag, `"`)
	}
	return &UploadResult{Key: key, Location: key, ETag: etag}, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// StageSnapshot is the archival document written per stage: the full
// match graph plus final standings, enough to reconstruct the stage's
// outcome without the live storage backend (SPEC_FULL §6.5).
type StageSnapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Stage      *engine.StageData `json:"stage"`
	Standings  []any             `json:"standings,omitempty"`
}

// Exporter serializes a stage's data and standings and uploads the
// result: the stage snapshot export operation of SPEC_FULL §6.5,
// implemented here rather than on engine.Manager.
type Exporter struct {
	manager  *engine.Manager
	uploader Uploader
}

func NewExporter(manager *engine.Manager, uploader Uploader) *Exporter {
	return &Exporter{manager: manager, uploader: uploader}
}

// ExportStageSnapshot fetches get.stageData + get.finalStandings for
// stageID, marshals them, and uploads the result keyed by stage id and
// export timestamp.
func (e *Exporter) ExportStageSnapshot(ctx context.Context, stageID int, now time.Time) (*UploadResult, error) {
	data, err := e.manager.GetStageData(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get stage data: %w", err)
	}
	standings, err := e.manager.GetFinalStandings(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get final standings: %w", err)
	}

	standingsAny := make([]any, len(standings))
	for i, s := range standings {
		standingsAny[i] = s
	}

	snap := StageSnapshot{ExportedAt: now, Stage: data, Standings: standingsAny}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}

	key := fmt.Sprintf("stages/%d/%d.json", stageID, now.Unix())
	return e.uploader.Upload(ctx, key, "application/json", bytes.NewReader(b))
}
