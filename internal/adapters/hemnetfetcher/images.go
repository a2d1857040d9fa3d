package hemnetfetcher

import (
	"context"
	"hemnet-images/internal/core/domain"

	"github.com/gocolly/colly/v2"
)

// DownloadImage скачивает изображение целиком.
func (a *HemnetFetcherAdapter) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	collector := a.clone(ctx)

	var data []byte
	collector.OnResponse(func(r *colly.Response) {
		data = append([]byte(nil), r.Body...)
	})

	if err := collector.Visit(imageURL); err != nil {
		return nil, domain.NewError(domain.KindImageFetch, "download "+imageURL, err)
	}
	collector.Wait()

	if data == nil {
		return nil, domain.Errorf(domain.KindImageFetch, "download "+imageURL, "empty response")
	}
	return data, nil
}
