// Package delivery pushes written invoice files to the partner-facing
// object store. Each file lands twice: once in the partner's pickup
// folder, once in the log mirror.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/application/pipeline"
	"github.com/dropship/invoicer/internal/infrastructure/config"
)

// objectPutter is the slice of the S3 client the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader implements pipeline.Uploader against an S3-compatible
// object store.
type S3Uploader struct {
	client       objectPutter
	bucket       string
	testCustomer string
	dryRun       bool
	logger       *zap.Logger
}

// NewS3Uploader creates an uploader from configuration. It supports any
// S3-compatible storage backend (AWS S3, MinIO, etc.)
func NewS3Uploader(cfg *config.DeliveryConfig, logger *zap.Logger) (*S3Uploader, error) {
	if cfg == nil {
		return nil, errors.New("delivery configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("delivery bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("delivery credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			if _, err := url.Parse(cfg.Endpoint); err == nil {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		}
	})

	return &S3Uploader{
		client:       client,
		bucket:       cfg.Bucket,
		testCustomer: cfg.TestCustomer,
		dryRun:       cfg.DryRun,
		logger:       logger,
	}, nil
}

// Upload mirrors each local file to its two remote destinations. A
// failed file is logged and the rest still go out; the combined error
// comes back so the caller can flag the run.
func (u *S3Uploader) Upload(ctx context.Context, localPaths []string) error {
	if len(localPaths) == 0 {
		u.logger.Info("No files to upload")
		return nil
	}

	var errs []error
	for _, path := range localPaths {
		folder, filename := decomposePath(path)
		if u.testCustomer != "" {
			folder = u.testCustomer
		}

		for _, key := range remoteKeys(folder, filename) {
			if u.dryRun {
				u.logger.Info("Dry run, skipping upload",
					zap.String("path", path),
					zap.String("key", key))
				continue
			}
			if err := u.putFile(ctx, path, key); err != nil {
				u.logger.Error("Upload failed",
					zap.String("path", path),
					zap.String("key", key),
					zap.Error(err))
				errs = append(errs, err)
				break
			}
			u.logger.Info("File uploaded",
				zap.String("path", path),
				zap.String("key", key))
		}
	}
	return errors.Join(errs...)
}

func (u *S3Uploader) putFile(ctx context.Context, path, key string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// decomposePath extracts the partner folder and filename from a local
// path shaped like <base>/<folder>/<timestamp>/<filename>. The folder
// is the file's grandparent directory, whatever the base is rooted
// under.
func decomposePath(localPath string) (folder, filename string) {
	filename = filepath.Base(localPath)
	folder = filepath.Base(filepath.Dir(filepath.Dir(localPath)))
	if folder == "." || folder == "/" || folder == string(filepath.Separator) {
		folder = "unknown"
	}
	return folder, filename
}

// remoteKeys returns the two mirrored destinations per business rules.
func remoteKeys(folder, filename string) []string {
	return []string{
		"dropshipper_logs/invoice_logs/" + folder + "/" + filename,
		"dropshipper/" + folder + "/invoices/" + filename,
	}
}

// Ensure S3Uploader implements the uploader interface
var _ pipeline.Uploader = (*S3Uploader)(nil)
