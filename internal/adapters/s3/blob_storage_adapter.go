package s3

import (
	"bytes"
	"context"
	"fmt"
	"hemnet-images/internal/core/domain"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client - подмножество клиента S3, которое нужно адаптеру.
type Client interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// BlobStorageAdapter хранит изображения в бакете S3, ключ объекта - ID изображения.
type BlobStorageAdapter struct {
	client Client
	bucket string
}

// NewBlobStorageAdapter создает адаптер для бакета bucket.
func NewBlobStorageAdapter(client Client, bucket string) *BlobStorageAdapter {
	return &BlobStorageAdapter{client: client, bucket: bucket}
}

func (a *BlobStorageAdapter) Put(ctx context.Context, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/jpeg"),
	})
	if err != nil {
		return domain.NewError(domain.KindImageStore, "put "+key, fmt.Errorf("s3 adapter: PutObject %s/%s: %w", a.bucket, key, err))
	}
	return nil
}

func (a *BlobStorageAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, domain.NewError(domain.KindImageRetrieval, "get "+key, fmt.Errorf("s3 adapter: GetObject %s/%s: %w", a.bucket, key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindImageRetrieval, "get "+key, fmt.Errorf("s3 adapter: read body: %w", err))
	}
	return data, nil
}
