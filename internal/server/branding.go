package server

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/seivahq/painel/modules/proposal/presentation/controllers"
)

const brandingURLTTL = 15 * time.Minute

// s3BrandingStorage serves tenant logos out of an S3 bucket via
// presigned GET URLs so the public page never proxies object bytes.
type s3BrandingStorage struct {
	presigner *s3.PresignClient
	bucket    string
}

func newS3BrandingStorageFromEnv(ctx context.Context) (controllers.BrandingStorage, error) {
	bucket := os.Getenv("BRANDING_BUCKET")
	if bucket == "" {
		return noopBrandingStorage{}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.New("branding: load aws config: " + err.Error())
	}
	return &s3BrandingStorage{
		presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:    bucket,
	}, nil
}

func (b *s3BrandingStorage) SignedURL(ctx context.Context, objectPath string) (string, error) {
	out, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(brandingURLTTL))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// noopBrandingStorage is used when no bucket is configured. The page
// simply renders without a logo.
type noopBrandingStorage struct{}

func (noopBrandingStorage) SignedURL(context.Context, string) (string, error) {
	return "", nil
}
