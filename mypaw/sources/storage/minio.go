package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"mypaw/mypaw/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient stores uploaded pet photos and hands back public URLs.
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOClient(cfg config.Config) (*MinIOClient, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
		if err := client.SetBucketPolicy(context.Background(), bucket, policy); err != nil {
			return nil, err
		}
	}
	publicURL := cfg.MinIOPublicURL
	if publicURL == "" {
		publicURL = "http://" + cfg.MinIOEndpoint
	}
	return &MinIOClient{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// UploadPetImage stores an image under pets/<scopingKey>-<unix>.<ext> and
// returns its public URL. The scoping key namespaces the object before the
// owning pet record exists.
func (m *MinIOClient) UploadPetImage(ctx context.Context, data []byte, scopingKey, ext, contentType string) (string, error) {
	if ext == "" {
		ext = "jpg"
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := path.Join("pets", fmt.Sprintf("%s-%d.%s", scopingKey, time.Now().Unix(), ext))

	_, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, key), nil
}
