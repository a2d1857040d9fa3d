package hemnetfetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hemnet-images/internal/constants"
	"hemnet-images/internal/core/domain"
	"net/http"
	"strconv"
	"strings"

	"github.com/gocolly/colly/v2"
)

type graphQLRequest struct {
	OperationName string            `json:"operationName"`
	Query         string            `json:"query"`
	Variables     map[string]string `json:"variables"`
}

type graphQLResponse struct {
	Data   *graphQLData   `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLData struct {
	Listing *graphQLListing `json:"listing"`
}

type graphQLListing struct {
	StreetAddress string         `json:"streetAddress"`
	Images        []graphQLImage `json:"images"`
}

type graphQLImage struct {
	URL string `json:"url"`
}

// FetchListingDetails запрашивает адрес и фотографии объявления.
// ok == false без ошибки означает, что фотографий нет и объявление надо пропустить.
func (a *HemnetFetcherAdapter) FetchListingDetails(ctx context.Context, listingID int64) (domain.ListingDetails, bool, error) {
	op := fmt.Sprintf("fetch listing %d", listingID)

	payload, err := json.Marshal(graphQLRequest{
		OperationName: constants.ListingImagesOperation,
		Query:         constants.ListingImagesQuery,
		Variables:     map[string]string{"id": strconv.FormatInt(listingID, 10)},
	})
	if err != nil {
		return domain.ListingDetails{}, false, domain.NewError(domain.KindDetailFetch, op, err)
	}

	collector := a.clone(ctx)

	var (
		body     []byte
		received bool
	)
	collector.OnResponse(func(r *colly.Response) {
		received = true
		body = r.Body
	})

	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Accept", "application/json")
	if err := collector.Request(http.MethodPost, a.opts.GraphQLURL, bytes.NewReader(payload), nil, hdr); err != nil {
		return domain.ListingDetails{}, false, domain.NewError(domain.KindDetailFetch, op, fmt.Errorf("graphql request failed: %w", err))
	}
	collector.Wait()

	if !received {
		return domain.ListingDetails{}, false, domain.Errorf(domain.KindDetailFetch, op, "no response from %s", a.opts.GraphQLURL)
	}

	details, ok, err := parseListingDetails(body)
	if err != nil {
		return domain.ListingDetails{}, false, domain.NewError(domain.KindDetailFetch, op, err)
	}
	return details, ok, nil
}

func parseListingDetails(body []byte) (domain.ListingDetails, bool, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ListingDetails{}, false, fmt.Errorf("invalid graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return domain.ListingDetails{}, false, fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}
	if resp.Data == nil || resp.Data.Listing == nil {
		return domain.ListingDetails{}, false, fmt.Errorf("graphql response has no listing")
	}

	listing := resp.Data.Listing
	urls := make([]string, 0, len(listing.Images))
	for _, image := range listing.Images {
		if image.URL != "" {
			urls = append(urls, image.URL)
		}
	}
	if len(urls) == 0 {
		return domain.ListingDetails{StreetAddress: listing.StreetAddress}, false, nil
	}
	return domain.ListingDetails{StreetAddress: listing.StreetAddress, ImageURLs: urls}, true, nil
}
