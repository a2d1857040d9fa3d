package usecase

import (
	"context"
	"fmt"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/port"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ImageIngestor скачивает изображения объявления и складывает их в blob-хранилище.
type ImageIngestor struct {
	downloader port.ImageDownloaderPort
	blobs      port.BlobStoragePort
	workers    int
	timeout    time.Duration
	newID      func() string
}

// NewImageIngestor создает ImageIngestor. workers <= 0 означает последовательную обработку.
func NewImageIngestor(downloader port.ImageDownloaderPort, blobs port.BlobStoragePort, workers int, timeout time.Duration) *ImageIngestor {
	if workers <= 0 {
		workers = 1
	}
	return &ImageIngestor{
		downloader: downloader,
		blobs:      blobs,
		workers:    workers,
		timeout:    timeout,
		newID:      uuid.NewString,
	}
}

// Ingest возвращает ID изображений в том же порядке, что и urls.
// При ошибке уже загруженные изображения остаются в хранилище.
func (ii *ImageIngestor) Ingest(ctx context.Context, urls []string) ([]string, error) {
	ids := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ii.workers)

	for i, imageURL := range urls {
		g.Go(func() error {
			id, err := ii.ingestOne(gctx, imageURL)
			if err != nil {
				return fmt.Errorf("image %d (%s): %w", i+1, imageURL, err)
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (ii *ImageIngestor) ingestOne(ctx context.Context, imageURL string) (string, error) {
	downloadCtx, cancel := withTimeout(ctx, ii.timeout)
	data, err := ii.downloader.DownloadImage(downloadCtx, imageURL)
	cancel()
	if err != nil {
		return "", domain.EnsureKind(err, domain.KindImageFetch, "download image")
	}

	id := ii.newID()

	putCtx, cancel := withTimeout(ctx, ii.timeout)
	defer cancel()
	if err := ii.blobs.Put(putCtx, id, data); err != nil {
		return "", domain.EnsureKind(err, domain.KindImageStore, "store image "+id)
	}

	slog.DebugContext(ctx, "ImageIngestor: stored image", slog.String("image_id", id), slog.Int("bytes", len(data)))
	return id, nil
}

// withTimeout ограничивает вызов внешнего сервиса. timeout <= 0 - без ограничения.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
