// Package media stores profile photos in S3-compatible object storage and
// hands out presigned links to them.
package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/miroir/internal/common"
	"github.com/dmitrijs2005/miroir/internal/filex"
)

// MaxPhotoSize is the largest accepted upload.
const MaxPhotoSize = 5 << 20

// LinkTTL is the validity of returned photo links, the SigV4 maximum.
const LinkTTL = 7 * 24 * time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Config struct {
	Region   string
	User     string
	Password string
	Endpoint string
	Bucket   string
}

// Enabled reports whether enough is configured to talk to a bucket.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.User != ""
}

type PhotoStore struct {
	cfg     Config
	client  *s3.Client
	presign *s3.PresignClient
}

// NewPhotoStore builds the S3 clients. A custom endpoint (MinIO and the
// like) switches to path-style addressing.
func NewPhotoStore(ctx context.Context, cfg Config) (*PhotoStore, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.User, cfg.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &PhotoStore{cfg: cfg, client: client, presign: s3.NewPresignClient(client)}, nil
}

// PhotoKey is the object key for a new photo of uid.
func PhotoKey(uid, ext string) string {
	return fmt.Sprintf("photos/%s/%s%s", uid, uuid.New(), strings.ToLower(ext))
}

// Upload stores the image at path as a new photo of uid and returns a
// presigned link to it.
func (p *PhotoStore) Upload(ctx context.Context, uid, path string) (string, error) {
	data, err := filex.ReadLimited(path, MaxPhotoSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %s is %s, not an image", common.ErrValidation, filepath.Base(path), contentType)
	}

	key := PhotoKey(uid, filepath.Ext(path))
	err = putObject(p.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", common.ErrStorage, key, err)
	}

	return p.Link(ctx, key)
}

// Link presigns a GET for key, valid for LinkTTL.
func (p *PhotoStore) Link(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(p.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(LinkTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
