package cataloginfra

import (
	"context"
	"os"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dialogo-labs/dialogo/catalog"
	"github.com/dialogo-labs/dialogo/pkg/config"
)

// S3AssetResolver firma URLs temporales para las imágenes del catálogo.
type S3AssetResolver struct {
	bucket    string
	ttl       time.Duration
	presigner *s3.PresignClient
}

var _ catalog.AssetResolver = (*S3AssetResolver)(nil)

func NewS3AssetResolver(cfg config.CatalogConfig) *S3AssetResolver {
	awsCfg := aws.Config{
		Region: cfg.AssetsRegion,
		Credentials: credentials.NewStaticCredentialsProvider(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			os.Getenv("AWS_SESSION_TOKEN"),
		),
	}

	client := s3.NewFromConfig(awsCfg)
	ttl := cfg.AssetsTTL
	if ttl == 0 {
		ttl = 1 * time.Hour
	}

	return &S3AssetResolver{
		bucket:    cfg.AssetsBucket,
		ttl:       ttl,
		presigner: s3.NewPresignClient(client),
	}
}

// ResolveImageURL returns a presigned GET URL for the object key.
func (r *S3AssetResolver) ResolveImageURL(ctx context.Context, imageKey string) (string, error) {
	if r.bucket == "" {
		return "", errx.New("catalog assets bucket not configured", errx.TypeInternal)
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(imageKey),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", errx.Wrap(err, "failed to presign catalog asset", errx.TypeExternal).
			WithDetail("key", imageKey)
	}

	return req.URL, nil
}
