package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/miroir/internal/common"
)

// a 1x1 PNG header is enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

var testCfg = Config{
	Region:   "us-east-1",
	User:     "minioadmin",
	Password: "minioadmin",
	Endpoint: "http://127.0.0.1:9000",
	Bucket:   "miroir",
}

func stubSeams(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPut, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject = origLoad, origNew, origPut, origPresign
	})
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestNewPhotoStore_AppliesConfig(t *testing.T) {
	stubSeams(t)

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewPhotoStore(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewPhotoStore_ConfigError(t *testing.T) {
	stubSeams(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewPhotoStore(context.Background(), testCfg)
	require.ErrorContains(t, err, "load aws config")
}

func TestUpload(t *testing.T) {
	stubSeams(t)

	var put *s3.PutObjectInput
	var body []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		put = in
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		body = b
		return nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, LinkTTL, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3.example.com/" + *in.Bucket + "/" + *in.Key + "?sig=x"}, nil
	}

	store, err := NewPhotoStore(context.Background(), testCfg)
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "uid-1", writeFile(t, "me.PNG", pngBytes))
	require.NoError(t, err)

	require.NotNil(t, put)
	assert.Equal(t, "miroir", *put.Bucket)
	assert.True(t, strings.HasPrefix(*put.Key, "photos/uid-1/"))
	assert.True(t, strings.HasSuffix(*put.Key, ".png"))
	assert.Equal(t, "image/png", *put.ContentType)
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, "https://s3.example.com/miroir/"+*put.Key+"?sig=x", url)
}

func TestUpload_RejectsNonImages(t *testing.T) {
	stubSeams(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput) error {
		t.Fatal("non-image must not be uploaded")
		return nil
	}

	store, err := NewPhotoStore(context.Background(), testCfg)
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "uid-1", writeFile(t, "notes.txt", []byte("hello there")))
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = store.Upload(context.Background(), "uid-1", filepath.Join(t.TempDir(), "missing.png"))
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUpload_PutFailure(t *testing.T) {
	stubSeams(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput) error {
		return errors.New("bucket not found")
	}

	store, err := NewPhotoStore(context.Background(), testCfg)
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "uid-1", writeFile(t, "me.png", pngBytes))
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestConfigEnabled(t *testing.T) {
	assert.True(t, testCfg.Enabled())
	assert.False(t, Config{}.Enabled())
}
