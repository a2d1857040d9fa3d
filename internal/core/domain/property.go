package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrPropertyNotFound возвращается хранилищем, если записи с таким PropertyID нет.
// Это не ошибка транспорта: вызывающий код решает, что с этим делать.
var ErrPropertyNotFound = errors.New("property not found")

// ListingCandidate представляет объявление, найденное поиском на Hemnet.
// PropertyID вычисляется один раз из имени файла превью.
type ListingCandidate struct {
	ListingID  int64  `json:"listing_id"`
	PropertyID string `json:"property_id"`
}

// ListingDetails - то, что мы получаем из GraphQL по одному объявлению
type ListingDetails struct {
	StreetAddress string   `json:"street_address"`
	ImageURLs     []string `json:"image_urls"`
}

// PropertyRecord - обработанный объект недвижимости.
// Создается один раз, после того как все его изображения загружены в хранилище.
type PropertyRecord struct {
	PropertyID    string   `json:"property_id"`
	ListingID     int64    `json:"listing_id"`
	StreetAddress string   `json:"street_address"`
	ImageIDs      []string `json:"image_ids"`
}

// Image - байты изображения и его идентификатор (он же ключ в blob-хранилище).
type Image struct {
	ID   string
	Data []byte
}

// InboundMessage - входящее письмо, на которое нужно ответить фотографиями.
type InboundMessage struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// SortedCandidates превращает результат поиска в стабильно упорядоченный список.
func SortedCandidates(candidates map[string]int64) []ListingCandidate {
	out := make([]ListingCandidate, 0, len(candidates))
	for propertyID, listingID := range candidates {
		out = append(out, ListingCandidate{ListingID: listingID, PropertyID: propertyID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out
}

// ListingFailure описывает объявление, обработка которого завершилась ошибкой.
type ListingFailure struct {
	PropertyID string `json:"property_id"`
	ListingID  int64  `json:"listing_id"`
	Error      string `json:"error"`
}

// RunStats - итог одного запуска конвейера загрузки.
type RunStats struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Discovered int              `json:"discovered"`
	New        int              `json:"new"`
	Ingested   int              `json:"ingested"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Images     int              `json:"images"`
	Failures   []ListingFailure `json:"failures,omitempty"`

	// Заполняется, если запуск прервался до обработки объявлений.
	RunError string `json:"run_error,omitempty"`
}

// Succeeded - запуск дошел до конца. Ошибки отдельных объявлений на это не влияют.
func (s RunStats) Succeeded() bool {
	return s.RunError == ""
}

// Err собирает ошибки запуска в одну, nil если ошибок не было.
func (s RunStats) Err() error {
	var errs []error
	if s.RunError != "" {
		errs = append(errs, errors.New(s.RunError))
	}
	for _, f := range s.Failures {
		errs = append(errs, fmt.Errorf("property %s (listing %d): %s", f.PropertyID, f.ListingID, f.Error))
	}
	return errors.Join(errs...)
}
