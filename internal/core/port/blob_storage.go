package port

import "context"

// BlobStoragePort хранит байты изображений под ключом, равным ID изображения.
type BlobStoragePort interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
