package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	cfg "github.com/maheshrc27/autopost/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AssetStore persists rendered bytes and returns their public URL.
type AssetStore interface {
	Save(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

type r2Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2Store(ctx context.Context, conf cfg.R2) (AssetStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", conf.AccountID))
	})

	return &r2Store{
		client:    client,
		bucket:    conf.BucketName,
		publicURL: strings.TrimRight(conf.PublicURL, "/"),
	}, nil
}

// ObjectKey names a stored asset after its sniffed type.
func ObjectKey(data []byte) (string, string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", "", err
	}
	if kind == types.Unknown {
		return "", "", fmt.Errorf("unknown asset type")
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("assets/%s.%s", id, kind.Extension), kind.MIME.Value, nil
}

func (r *r2Store) Save(ctx context.Context, data []byte) (string, error) {
	key, contentType, err := ObjectKey(data)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return r.publicURL + "/" + key, nil
}

func (r *r2Store) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, r.publicURL+"/")
	if key == url {
		return fmt.Errorf("url %q is not served from this bucket", url)
	}

	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
