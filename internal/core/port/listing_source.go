package port

import (
	"context"
	"hemnet-images/internal/core/domain"
)

// ListingSourcePort объединяет все операции, которые можно выполнить
// с сайтом Hemnet.
type ListingSourcePort interface {
	// FetchSearchToken загружает страницу поиска и извлекает из нее search_key.
	FetchSearchToken(ctx context.Context) (string, error)

	// DiscoverListings возвращает объявления первой страницы поиска: PropertyID -> ListingID.
	DiscoverListings(ctx context.Context, token string) (map[string]int64, error)

	// FetchListingDetails извлекает адрес и ссылки на изображения объявления.
	// ok == false означает, что изображений нет и объявление нужно пропустить.
	FetchListingDetails(ctx context.Context, listingID int64) (details domain.ListingDetails, ok bool, err error)
}

// ImageDownloaderPort скачивает изображение целиком.
type ImageDownloaderPort interface {
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}
