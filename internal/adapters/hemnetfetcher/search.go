package hemnetfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
)

type hemnetSearchResponse struct {
	Listings []hemnetSearchListing `json:"listings"`
}

type hemnetSearchListing struct {
	ID        *int64 `json:"id"`
	Thumbnail string `json:"thumbnail"`
}

func (a *HemnetFetcherAdapter) searchPageURL() (string, error) {
	u, err := url.Parse(a.opts.SearchPageURL)
	if err != nil {
		return "", err
	}
	if a.opts.SubscriptionID != "" {
		q := u.Query()
		q.Set("subscription", a.opts.SubscriptionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// FetchSearchToken загружает страницу поиска и достает из нее токен.
func (a *HemnetFetcherAdapter) FetchSearchToken(ctx context.Context) (string, error) {
	const op = "fetch search token"

	targetURL, err := a.searchPageURL()
	if err != nil {
		return "", domain.NewError(domain.KindExtraction, op, fmt.Errorf("bad search page url: %w", err))
	}

	collector := a.clone(ctx)

	var page []byte
	collector.OnResponse(func(r *colly.Response) {
		page = r.Body
	})

	if err := collector.Visit(targetURL); err != nil {
		return "", domain.NewError(domain.KindExtraction, op, fmt.Errorf("failed to visit %s: %w", targetURL, err))
	}
	collector.Wait()

	token, err := ExtractSearchToken(string(page))
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "HemnetFetcherAdapter: search token extracted", slog.Int("page_bytes", len(page)))
	return token, nil
}

// DiscoverListings выполняет один поисковый запрос и возвращает PropertyID -> ListingID.
// Если два объявления дают один PropertyID, побеждает последнее.
func (a *HemnetFetcherAdapter) DiscoverListings(ctx context.Context, token string) (map[string]int64, error) {
	const op = "discover listings"

	u, err := url.Parse(a.opts.SearchAPIURL)
	if err != nil {
		return nil, domain.NewError(domain.KindDiscovery, op, fmt.Errorf("bad search api url: %w", err))
	}
	q := u.Query()
	q.Set("search_key", token)
	u.RawQuery = q.Encode()
	targetURL := u.String()

	collector := a.clone(ctx)

	var (
		candidates map[string]int64
		parseErr   error
		received   bool
	)
	collector.OnResponse(func(r *colly.Response) {
		received = true
		candidates, parseErr = parseSearchResponse(r.Body)
	})

	if err := collector.Visit(targetURL); err != nil {
		return nil, domain.NewError(domain.KindDiscovery, op, fmt.Errorf("failed to visit %s: %w", targetURL, err))
	}
	collector.Wait()

	if !received {
		return nil, domain.Errorf(domain.KindDiscovery, op, "no response from %s", targetURL)
	}
	if parseErr != nil {
		return nil, domain.NewError(domain.KindDiscovery, op, parseErr)
	}

	slog.InfoContext(ctx, "HemnetFetcherAdapter: listings discovered", slog.Int("count", len(candidates)))
	return candidates, nil
}

func parseSearchResponse(body []byte) (map[string]int64, error) {
	var data hemnetSearchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid search response: %w", err)
	}
	if data.Listings == nil {
		return nil, fmt.Errorf("search response has no listings field")
	}

	candidates := make(map[string]int64, len(data.Listings))
	for i, listing := range data.Listings {
		if listing.ID == nil {
			return nil, fmt.Errorf("listing %d has no id", i)
		}
		propertyID, err := PropertyIDFromThumbnail(listing.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", *listing.ID, err)
		}
		candidates[propertyID] = *listing.ID
	}
	return candidates, nil
}

// PropertyIDFromThumbnail возвращает имя файла миниатюры без расширения:
// часть пути после последнего "/" до первой ".".
func PropertyIDFromThumbnail(thumbnail string) (string, error) {
	u, err := url.Parse(thumbnail)
	if err != nil {
		return "", fmt.Errorf("bad thumbnail url %q: %w", thumbnail, err)
	}

	segment := u.Path
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.Index(segment, "."); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return "", fmt.Errorf("thumbnail url %q has no file name", thumbnail)
	}
	return segment, nil
}
